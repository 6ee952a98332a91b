package usecases

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Terminator ends the session once, after giving the user time to read the reason.
type Terminator struct {
	delay       time.Duration
	quit        func(reason string)
	logger      *slog.Logger
	terminating atomic.Bool
	reason      atomic.Value
}

// NewTerminator creates a Terminator that calls quit delay after the first Trigger.
func NewTerminator(delay time.Duration, quit func(reason string), logger *slog.Logger) *Terminator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminator{delay: delay, quit: quit, logger: logger}
}

// Trigger schedules termination. Only the first call schedules anything; it
// returns false when termination was already under way.
func (t *Terminator) Trigger(reason string) bool {
	if !t.terminating.CompareAndSwap(false, true) {
		t.logger.Debug("termination already scheduled, ignoring", "reason", reason)
		return false
	}
	t.reason.Store(reason)
	t.logger.Error("session terminating", "reason", reason, "delay", t.delay.String())

	time.AfterFunc(t.delay, func() {
		if t.quit != nil {
			t.quit(reason)
		}
	})
	return true
}

// Terminating reports whether termination has been scheduled.
func (t *Terminator) Terminating() bool {
	return t.terminating.Load()
}

// Reason returns the reason passed to the first Trigger, if any.
func (t *Terminator) Reason() string {
	r, _ := t.reason.Load().(string)
	return r
}
