package sprint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/sprint-bot-go/config"
	"github.com/soocke/sprint-bot-go/domain/capture"
	"github.com/soocke/sprint-bot-go/domain/classify"
)

// Controller owns the detection loop. A single goroutine runs the
// capture -> classify -> debounce -> dispatch cycle on a fixed interval;
// all control surface calls (Start, Stop, Toggle, Status) are safe from
// any goroutine and take effect at the next cycle boundary, so a cycle in
// flight always finishes.
type Controller struct {
	source     capture.Source
	classifier classify.Classifier
	dispatcher *KeyDispatcher
	deb        *Debouncer
	logger     *slog.Logger

	interval  time.Duration
	timeout   time.Duration
	failLimit int

	mu         sync.Mutex
	run        RunState
	icon       IconState
	reason     string
	confidence float64
	failures   int
	autoPaused bool
	listeners  []ChangeListener
	done       chan struct{}
	stopped    chan struct{}
}

func NewController(
	cfg *config.Settings,
	source capture.Source,
	classifier classify.Classifier,
	dispatcher *KeyDispatcher,
	logger *slog.Logger,
) *Controller {
	if cfg == nil {
		cfg = config.DefaultSettings()
	}
	if logger == nil {
		logger = slog.Default()
	}
	initial := IconStateFromString(cfg.InitialState)
	return &Controller{
		source:     source,
		classifier: classifier,
		dispatcher: dispatcher,
		deb:        NewDebouncer(initial, cfg.DebounceCount),
		logger:     logger,
		interval:   time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		timeout:    time.Duration(cfg.CaptureTimeoutMs) * time.Millisecond,
		failLimit:  cfg.MaxConsecutiveFail,
		icon:       initial,
	}
}

// AddListener registers a callback for committed transitions. Listeners
// run on the loop goroutine and must return quickly.
func (c *Controller) AddListener(l ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Start begins polling, or resumes when paused. Starting a running
// controller is a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.run {
	case RunRunning:
		return
	case RunPaused:
		c.resumeLocked()
		c.logger.Info("detection resumed")
	case RunStopped:
		initial := c.icon
		c.deb.Reset(initial)
		c.run = RunRunning
		c.reason = ""
		c.failures = 0
		c.autoPaused = false
		c.done = make(chan struct{})
		c.stopped = make(chan struct{})
		go c.loop(c.done, c.stopped)
		c.logger.Info("detection started", slog.String("initial", initial.String()))
	}
}

// Stop ends the loop and joins it: the cycle in flight, if any, completes
// before Stop returns, so a subsequent Start can never overlap two loops.
// Must not be called from a change listener.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.run == RunStopped {
		c.mu.Unlock()
		return
	}
	c.run = RunStopped
	c.reason = ""
	c.failures = 0
	c.autoPaused = false
	done, stopped := c.done, c.stopped
	c.done, c.stopped = nil, nil
	close(done)
	c.mu.Unlock()

	// Wait outside the mutex; the final cycle still takes it briefly.
	<-stopped
	c.logger.Info("detection stopped")
}

// Toggle flips between running and paused. It does nothing while stopped.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.run {
	case RunRunning:
		c.run = RunPaused
		c.reason = "paused manually"
		c.autoPaused = false
		c.logger.Info("detection paused")
	case RunPaused:
		c.resumeLocked()
		c.logger.Info("detection resumed")
	default:
		c.logger.Warn("toggle ignored while stopped")
	}
}

// AutoPause pauses a running controller on behalf of a supervisor such as
// the window watcher. It records the reason for the status surface.
func (c *Controller) AutoPause(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != RunRunning {
		return
	}
	c.run = RunPaused
	c.reason = reason
	c.autoPaused = true
	c.logger.Warn("detection auto-paused", slog.String("reason", reason))
}

// AutoResume undoes an automatic pause. A manual pause stays paused.
func (c *Controller) AutoResume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != RunPaused || !c.autoPaused {
		return
	}
	c.resumeLocked()
	c.logger.Info("detection auto-resumed")
}

func (c *Controller) resumeLocked() {
	c.run = RunRunning
	c.reason = ""
	c.failures = 0
	c.autoPaused = false
}

// Status returns a consistent snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Run:        c.run,
		Icon:       c.icon,
		Reason:     c.reason,
		Confidence: c.confidence,
	}
}

// StatusString renders the status for the tray tooltip.
func (c *Controller) StatusString() string {
	s := c.Status()
	switch s.Run {
	case RunRunning:
		return fmt.Sprintf("Running (%s, %.2f)", s.Icon, s.Confidence)
	case RunPaused:
		return fmt.Sprintf("Paused: %s", s.Reason)
	default:
		return "Stopped"
	}
}

func (c *Controller) loop(done, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Controller) poll() {
	c.mu.Lock()
	running := c.run == RunRunning
	c.mu.Unlock()
	if !running {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	frame, err := c.source.Capture(ctx)
	if err != nil {
		c.logger.Warn("capture failed", slog.Any("error", err))
		c.noteFailure("screen capture keeps failing")
		return
	}

	res, cerr := c.classifier.Classify(ctx, frame.Image)
	capture.RecycleFrame(frame)
	if cerr != nil {
		c.logger.Warn("classification failed", slog.Any("error", cerr))
		res = classify.Result{State: classify.StateUnknown, At: time.Now()}
	}

	change, committed := c.deb.Observe(res)

	c.mu.Lock()
	c.confidence = res.Confidence
	if committed {
		c.icon = change.To
	}
	var listeners []ChangeListener
	if committed {
		listeners = append(listeners, c.listeners...)
	}
	if res.State != classify.StateUnknown {
		c.failures = 0
	}
	c.mu.Unlock()

	if res.State == classify.StateUnknown {
		c.noteFailure("sprint icon not recognized")
	}

	if committed {
		c.logger.Info("sprint state changed",
			slog.String("from", change.From.String()),
			slog.String("to", change.To.String()),
			slog.Float64("confidence", res.Confidence),
		)
		if c.dispatcher != nil {
			c.dispatcher.OnChange(change)
		}
		for _, l := range listeners {
			l(change)
		}
	}
}

// noteFailure counts a failed cycle and auto-pauses once the limit is hit.
// A decisive classification resets the counter in poll.
func (c *Controller) noteFailure(reason string) {
	c.mu.Lock()
	c.failures++
	paused := false
	if c.failures >= c.failLimit && c.run == RunRunning {
		c.run = RunPaused
		c.reason = reason
		c.autoPaused = true
		c.failures = 0
		paused = true
	}
	c.mu.Unlock()

	if paused {
		c.logger.Warn("detection auto-paused", slog.String("reason", reason))
	}
}
