package sprint

import (
	"log/slog"
	"time"
)

// KeyDispatcher presses the configured key whenever a committed transition
// lands on the trigger state. Presses within the cooldown window are
// suppressed so a flapping icon cannot spam the game client.
//
// OnChange is only ever called from the controller loop goroutine, so the
// dispatcher keeps no lock.
type KeyDispatcher struct {
	trigger  IconState
	cooldown time.Duration
	press    func() error
	logger   *slog.Logger

	last time.Time
	now  func() time.Time
}

func NewKeyDispatcher(trigger IconState, cooldown time.Duration, press func() error, logger *slog.Logger) *KeyDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyDispatcher{
		trigger:  trigger,
		cooldown: cooldown,
		press:    press,
		logger:   logger,
		now:      time.Now,
	}
}

// OnChange reacts to a committed transition. It reports whether a key press
// was attempted. A failed press is logged and still starts the cooldown so
// a broken input path does not retry every poll.
func (d *KeyDispatcher) OnChange(c Change) bool {
	if c.To != d.trigger {
		return false
	}

	now := d.now()
	if !d.last.IsZero() && now.Sub(d.last) < d.cooldown {
		d.logger.Debug("dispatch suppressed by cooldown",
			slog.String("to", c.To.String()),
			slog.Duration("since_last", now.Sub(d.last)),
		)
		return false
	}
	d.last = now

	if err := d.press(); err != nil {
		d.logger.Error("key dispatch failed", slog.Any("error", err))
		return true
	}
	d.logger.Info("sprint key dispatched",
		slog.String("from", c.From.String()),
		slog.String("to", c.To.String()),
	)
	return true
}
