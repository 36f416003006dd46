package sprint

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// controlSurface is the slice of the controller the watcher needs.
type controlSurface interface {
	Status() Status
	AutoPause(reason string)
	AutoResume()
}

// WindowWatcher pauses detection while the game window is not in the
// foreground and resumes it when focus returns. A brief alt-tab is
// forgiven: the pause only triggers after missLimit consecutive checks
// fail. Only pauses the watcher itself caused are resumed, so a manual
// pause or a failure pause sticks.
type WindowWatcher struct {
	ctrl       controlSurface
	title      string
	foreground func() (string, error)
	interval   time.Duration
	missLimit  int
	logger     *slog.Logger

	mu         sync.Mutex
	done       chan struct{}
	misses     int
	pausedByUs bool
}

func NewWindowWatcher(
	ctrl controlSurface,
	title string,
	foreground func() (string, error),
	interval time.Duration,
	missLimit int,
	logger *slog.Logger,
) *WindowWatcher {
	if missLimit < 1 {
		missLimit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowWatcher{
		ctrl:       ctrl,
		title:      strings.ToLower(title),
		foreground: foreground,
		interval:   interval,
		missLimit:  missLimit,
		logger:     logger,
	}
}

func (w *WindowWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	w.done = make(chan struct{})
	go w.loop(w.done)
}

func (w *WindowWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		return
	}
	close(w.done)
	w.done = nil
}

func (w *WindowWatcher) loop(done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *WindowWatcher) check() {
	title, err := w.foreground()
	matched := err == nil && strings.Contains(strings.ToLower(title), w.title)

	w.mu.Lock()
	defer w.mu.Unlock()

	if matched {
		w.misses = 0
		if w.pausedByUs && w.ctrl.Status().Run == RunPaused {
			w.pausedByUs = false
			w.ctrl.AutoResume()
			w.logger.Info("game window focused again")
		}
		return
	}

	if w.ctrl.Status().Run != RunRunning {
		w.misses = 0
		return
	}
	w.misses++
	if w.misses < w.missLimit {
		return
	}
	w.misses = 0
	w.pausedByUs = true
	w.ctrl.AutoPause("game window not focused")
}
