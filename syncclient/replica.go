package syncclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"venue-backend/models"
)

// Replica is the in-memory copy of the document a session edits. Every
// mutation bumps a generation counter so a poll that started before the
// mutation can tell its result is stale. The generation carried by the last
// acknowledged write marks which edits the server already holds.
type Replica struct {
	mu              sync.RWMutex
	doc             models.Document
	revision        int64
	generation      uint64
	sentGeneration  uint64
	ackedGeneration uint64
	onMutate        func()
	now             func() time.Time
}

func NewReplica(doc models.Document) *Replica {
	doc.Normalize()
	return &Replica{doc: doc, now: func() time.Time { return time.Now().UTC() }}
}

// OnMutate registers the hook run after each mutation, usually
// Scheduler.ScheduleWrite.
func (r *Replica) OnMutate(fn func()) {
	r.mu.Lock()
	r.onMutate = fn
	r.mu.Unlock()
}

// Mutate applies fn to a copy of the document and keeps the copy only when
// fn succeeds, so a failed edit leaves nothing behind.
func (r *Replica) Mutate(fn func(doc *models.Document) error) error {
	r.mu.Lock()
	next, err := copyDocument(r.doc)
	if err == nil {
		err = fn(&next)
	}
	if err != nil {
		r.mu.Unlock()
		return err
	}
	next.Normalize()
	r.doc = next
	r.generation++
	hook := r.onMutate
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func copyDocument(doc models.Document) (models.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.Document{}, fmt.Errorf("serialize replica: %w", err)
	}
	var out models.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Document{}, fmt.Errorf("serialize replica: %w", err)
	}
	out.Normalize()
	return out, nil
}

// Payload returns an independent deep copy of the current document.
func (r *Replica) Payload() (models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyDocument(r.doc)
}

// WritePayload is the scheduler's source. Besides the copy it remembers the
// generation being sent; ApplyWriteResult marks it acknowledged.
func (r *Replica) WritePayload() (models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := copyDocument(r.doc)
	if err != nil {
		return models.Document{}, err
	}
	r.sentGeneration = r.generation
	return doc, nil
}

func (r *Replica) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Revision is the server revision the replica last agreed with, 0 if none.
func (r *Replica) Revision() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Unacknowledged reports local edits that no successful write has carried.
func (r *Replica) Unacknowledged() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ackedGeneration != r.generation
}

// ReplaceIf swaps in a server document. It refuses when a mutation happened
// since generation was read, when the replica holds edits the server has not
// acknowledged, or when revision is older than the one already held. It
// reports whether the replacement happened.
func (r *Replica) ReplaceIf(generation uint64, doc models.Document, revision int64) bool {
	return r.replace(generation, doc, revision, true)
}

// ReplaceBaseline is ReplaceIf for the first server state of a session: edits
// made before the baseline was known give way to it.
func (r *Replica) ReplaceBaseline(generation uint64, doc models.Document, revision int64) bool {
	return r.replace(generation, doc, revision, false)
}

func (r *Replica) replace(generation uint64, doc models.Document, revision int64, keepEdits bool) bool {
	doc.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != generation || revision < r.revision {
		return false
	}
	if keepEdits && r.ackedGeneration != r.generation {
		return false
	}
	r.doc = doc
	r.revision = revision
	r.ackedGeneration = r.generation
	return true
}

// ApplyWriteResult records the revision of a committed write and adopts the
// quote codes the server reassigned, without scheduling another write.
func (r *Replica) ApplyWriteResult(res *WriteResult) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.Revision > r.revision {
		r.revision = res.Revision
	}
	if r.sentGeneration > r.ackedGeneration {
		r.ackedGeneration = r.sentGeneration
	}
	for i := range r.doc.Events {
		e := &r.doc.Events[i]
		if code, ok := res.ReassignedCodes[e.ID]; ok && e.Quote != nil {
			e.Quote.Code = code
		}
	}
}

func findEvent(doc *models.Document, eventID string) (*models.Event, error) {
	for i := range doc.Events {
		if doc.Events[i].ID == eventID {
			return &doc.Events[i], nil
		}
	}
	return nil, fmt.Errorf("event %s not found", eventID)
}

// SaveQuote recomputes the totals of fields and stores them on the event's
// quote. bump appends a new version; otherwise the head version is amended.
func (r *Replica) SaveQuote(eventID string, fields models.QuoteFields, bump bool) error {
	at := r.now()
	return r.Mutate(func(doc *models.Document) error {
		e, err := findEvent(doc, eventID)
		if err != nil {
			return err
		}
		if e.Quote == nil {
			e.Quote = &models.Quote{}
		}
		if fields.Code == "" {
			fields.Code = e.Quote.Code
		}
		fields.ComputeTotals()
		e.Quote.SaveFields(fields, bump, at)
		return nil
	})
}

// SaveMenuMontaje stores the menu/montaje entries of the event's quote and
// commits them into the quote head as well.
func (r *Replica) SaveMenuMontaje(eventID string, entries []models.MenuMontajeEntry, bump bool) error {
	at := r.now()
	return r.Mutate(func(doc *models.Document) error {
		e, err := findEvent(doc, eventID)
		if err != nil {
			return err
		}
		if e.Quote == nil {
			e.Quote = &models.Quote{}
		}
		e.Quote.SaveMenuMontaje(entries, bump, at)
		e.Quote.CommitHead(at)
		return nil
	})
}
