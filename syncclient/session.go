package syncclient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venue-backend/models"
)

// Transport is what a Session needs from the server.
type Transport interface {
	Fetcher
	Pusher
}

type SessionOptions struct {
	Debounce      time.Duration
	PollInterval  time.Duration
	WriteTimeout  time.Duration
	SeedWhenEmpty bool
	Logger        *zap.Logger
	OnError       func(op string, err error)
	OnApplied     func(revision int64)
}

// Session wires a replica, its write scheduler and the poller that keeps it
// in step with the server. Replica.Mutate and its helpers are the only
// entry points for edits.
type Session struct {
	Replica   *Replica
	Scheduler *Scheduler
	Poller    *Poller
	Notifier  *Notifier
}

func NewSession(transport Transport, initial models.Document, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := NewNotifier(logger, opts.OnError)
	replica := NewReplica(initial)
	scheduler := NewScheduler(replica.WritePayload, transport, SchedulerOptions{
		Debounce:     opts.Debounce,
		WriteTimeout: opts.WriteTimeout,
		Notifier:     notifier,
		Logger:       logger,
		OnWritten:    replica.ApplyWriteResult,
	})
	replica.OnMutate(scheduler.ScheduleWrite)

	return &Session{
		Replica:   replica,
		Scheduler: scheduler,
		Notifier:  notifier,
		Poller: &Poller{
			Fetcher:       transport,
			Scheduler:     scheduler,
			Replica:       replica,
			Notifier:      notifier,
			Interval:      opts.PollInterval,
			Logger:        logger,
			SeedWhenEmpty: opts.SeedWhenEmpty,
			OnApplied:     opts.OnApplied,
		},
	}
}

// Run polls until ctx is done, then flushes pending edits and waits for the
// last write.
func (s *Session) Run(ctx context.Context) error {
	err := s.Poller.Run(ctx)
	s.Scheduler.Flush()
	s.Scheduler.Close()
	return err
}
