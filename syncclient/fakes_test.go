package syncclient

import (
	"context"
	"errors"
	"sync"

	"venue-backend/models"
)

// recordingPusher keeps every pushed document. When gate is set the first
// push signals started and waits for gate to close.
type recordingPusher struct {
	mu      sync.Mutex
	pushes  []models.Document
	errs    []error
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	rev     int64
}

func (p *recordingPusher) Push(ctx context.Context, doc models.Document) (*WriteResult, error) {
	if p.gate != nil {
		first := false
		p.once.Do(func() { first = true })
		if first {
			close(p.started)
			<-p.gate
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, doc)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	p.rev++
	return &WriteResult{Revision: p.rev}, nil
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

func (p *recordingPusher) last() models.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[len(p.pushes)-1]
}

func (p *recordingPusher) failNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.errs = append(p.errs, errors.New("connection refused"))
	}
}

type fetchFunc func(ctx context.Context, etag string) (*FetchResult, error)

func (f fetchFunc) Fetch(ctx context.Context, etag string) (*FetchResult, error) {
	return f(ctx, etag)
}

func addRoom(name string) func(*models.Document) error {
	return func(doc *models.Document) error {
		doc.Rooms = append(doc.Rooms, name)
		return nil
	}
}
