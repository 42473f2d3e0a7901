package syncclient

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"venue-backend/models"
)

// DefaultDebounce is the quiet period after the last mutation before a
// write starts.
const DefaultDebounce = 700 * time.Millisecond

// State is the write state of a Scheduler.
type State int

const (
	Idle State = iota
	Writing
	WritingWithPendingFollowUp
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Writing:
		return "writing"
	case WritingWithPendingFollowUp:
		return "writing_with_pending_follow_up"
	}
	return "unknown"
}

// Scheduler coalesces bursts of mutations into single writes and keeps at
// most one write outstanding. A mutation that lands while a write is in
// flight is carried by exactly one follow-up write.
type Scheduler struct {
	mu            sync.Mutex
	state         State
	baselineReady bool
	deferred      bool
	timer         *time.Timer
	timerSeq      uint64
	closed        bool
	inflight      sync.WaitGroup

	debounce     time.Duration
	writeTimeout time.Duration
	source       func() (models.Document, error)
	pusher       Pusher
	notifier     *Notifier
	logger       *zap.Logger
	onWritten    func(*WriteResult)
}

type SchedulerOptions struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	Notifier     *Notifier
	Logger       *zap.Logger
	// OnWritten runs after every successful write, outside the scheduler lock.
	OnWritten func(*WriteResult)
}

// NewScheduler builds a scheduler that serializes source() and sends it
// through pusher.
func NewScheduler(source func() (models.Document, error), pusher Pusher, opts SchedulerOptions) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier(opts.Logger, nil)
	}
	return &Scheduler{
		debounce:     opts.Debounce,
		writeTimeout: opts.WriteTimeout,
		source:       source,
		pusher:       pusher,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		onWritten:    opts.OnWritten,
	}
}

// ScheduleWrite restarts the debounce window.
func (s *Scheduler) ScheduleWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(seq) })
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.timerSeq || s.timer == nil {
		return
	}
	s.timer = nil
	s.requestWriteLocked()
}

// Flush starts the pending debounced write now, if there is one.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.timerSeq++
	s.requestWriteLocked()
}

func (s *Scheduler) requestWriteLocked() {
	if !s.baselineReady {
		s.deferred = true
		s.logger.Debug("write deferred until the server baseline is known")
		return
	}
	switch s.state {
	case Idle:
		s.startWriteLocked()
	case Writing:
		s.state = WritingWithPendingFollowUp
	case WritingWithPendingFollowUp:
	}
}

func (s *Scheduler) startWriteLocked() {
	s.state = Writing
	s.inflight.Add(1)
	go s.write()
}

func (s *Scheduler) write() {
	defer s.inflight.Done()

	result, err := s.send()
	if err != nil {
		s.notifier.Failure("write", err)
	} else {
		s.notifier.Success()
		if s.onWritten != nil {
			s.onWritten(result)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == WritingWithPendingFollowUp {
		s.startWriteLocked()
		return
	}
	s.state = Idle
}

func (s *Scheduler) send() (*WriteResult, error) {
	doc, err := s.source()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	result, err := s.pusher.Push(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("state written", zap.Int64("revision", result.Revision), zap.Int("reassigned_codes", len(result.ReassignedCodes)))
	return result, nil
}

// MarkBaselineReady records that the server state is known (fetched, or
// known to be absent) and releases a write deferred until then. It reports
// whether such a write was released.
func (s *Scheduler) MarkBaselineReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselineReady = true
	if s.deferred && !s.closed {
		s.deferred = false
		s.requestWriteLocked()
		return true
	}
	return false
}

// AdoptBaseline is MarkBaselineReady for a replica that was just replaced by
// the server document: a deferred write would only echo it back, so it is
// dropped.
func (s *Scheduler) AdoptBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselineReady = true
	s.deferred = false
}

func (s *Scheduler) BaselineReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baselineReady
}

// Busy reports a write in flight or a debounce still pending. Polls are
// skipped while busy. A write deferred for the baseline does not count: the
// poll is what establishes the baseline.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != Idle || s.timer != nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close drops a pending debounce and waits for the write chain in flight.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.inflight.Wait()
}
