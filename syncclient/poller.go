package syncclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PollOutcome describes what one poll did.
type PollOutcome int

const (
	PollSkipped PollOutcome = iota
	PollNotModified
	PollNotPopulated
	PollApplied
	PollDiscarded
	PollFailed
)

func (o PollOutcome) String() string {
	switch o {
	case PollSkipped:
		return "skipped"
	case PollNotModified:
		return "not_modified"
	case PollNotPopulated:
		return "not_populated"
	case PollApplied:
		return "applied"
	case PollDiscarded:
		return "discarded"
	case PollFailed:
		return "failed"
	}
	return "unknown"
}

// DefaultPollInterval is used when Poller.Interval is not set.
const DefaultPollInterval = 5 * time.Second

// Poller pulls the server document into the replica whenever the scheduler
// has nothing to send.
type Poller struct {
	Fetcher   Fetcher
	Scheduler *Scheduler
	Replica   *Replica
	Notifier  *Notifier
	Interval  time.Duration
	Logger    *zap.Logger
	// SeedWhenEmpty writes the local document when the server has none.
	SeedWhenEmpty bool
	// OnApplied runs after a server document replaced the replica.
	OnApplied func(revision int64)
}

// PollOnce runs a single poll cycle.
func (p *Poller) PollOnce(ctx context.Context) (PollOutcome, error) {
	log := p.logger()
	if p.Scheduler.Busy() {
		return PollSkipped, nil
	}

	generation := p.Replica.Generation()
	etag := ""
	if rev := p.Replica.Revision(); rev > 0 {
		etag = fmt.Sprintf(`"rev-%d"`, rev)
	}

	res, err := p.Fetcher.Fetch(ctx, etag)
	switch {
	case errors.Is(err, ErrNotPopulated):
		p.notifier().Success()
		released := p.Scheduler.MarkBaselineReady()
		// a released deferred write already carries the local document
		if p.SeedWhenEmpty && !released && p.Replica.Generation() == generation {
			p.Scheduler.ScheduleWrite()
		}
		return PollNotPopulated, nil
	case err != nil:
		p.notifier().Failure("poll", err)
		return PollFailed, err
	}
	p.notifier().Success()

	if res.NotModified {
		p.Scheduler.MarkBaselineReady()
		return PollNotModified, nil
	}
	replace := p.Replica.ReplaceIf
	if !p.Scheduler.BaselineReady() {
		replace = p.Replica.ReplaceBaseline
	}
	if p.Scheduler.Busy() || !replace(generation, *res.Document, res.Revision) {
		log.Debug("fetched state discarded", zap.Int64("revision", res.Revision), zap.Int64("held_revision", p.Replica.Revision()))
		// a write that failed left edits only this replica holds; send them again
		if p.Replica.Unacknowledged() && !p.Scheduler.Busy() && p.Scheduler.BaselineReady() {
			p.Scheduler.ScheduleWrite()
		}
		return PollDiscarded, nil
	}
	p.Scheduler.AdoptBaseline()
	log.Debug("replica replaced from server", zap.Int64("revision", res.Revision))
	if p.OnApplied != nil {
		p.OnApplied(res.Revision)
	}
	return PollApplied, nil
}

// Run polls immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if outcome, err := p.PollOnce(ctx); err == nil {
			p.logger().Debug("poll finished", zap.Stringer("outcome", outcome))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Poller) notifier() *Notifier {
	if p.Notifier == nil {
		p.Notifier = NewNotifier(p.logger(), nil)
	}
	return p.Notifier
}
