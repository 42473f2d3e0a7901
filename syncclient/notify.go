package syncclient

import (
	"sync"

	"go.uber.org/zap"
)

// Notifier surfaces the first failure of a streak and stays quiet until a
// success ends it.
type Notifier struct {
	mu      sync.Mutex
	failing bool
	logger  *zap.Logger
	onError func(op string, err error)
}

// NewNotifier logs surfaced failures; onError, when set, is called as well.
func NewNotifier(logger *zap.Logger, onError func(op string, err error)) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger, onError: onError}
}

// Failure reports err and returns whether it was surfaced.
func (n *Notifier) Failure(op string, err error) bool {
	n.mu.Lock()
	if n.failing {
		n.mu.Unlock()
		n.logger.Debug("sync failure suppressed", zap.String("op", op), zap.Error(err))
		return false
	}
	n.failing = true
	n.mu.Unlock()

	n.logger.Error("sync with server failed; changes stay local until the next successful sync",
		zap.String("op", op), zap.Error(err))
	if n.onError != nil {
		n.onError(op, err)
	}
	return true
}

func (n *Notifier) Success() {
	n.mu.Lock()
	recovered := n.failing
	n.failing = false
	n.mu.Unlock()
	if recovered {
		n.logger.Info("sync with server restored")
	}
}

func (n *Notifier) Failing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failing
}
