package sprint

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/sprint-bot-go/config"
	"github.com/soocke/sprint-bot-go/domain/capture"
	"github.com/soocke/sprint-bot-go/domain/classify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sourceFunc func(context.Context) (capture.Frame, error)

func (f sourceFunc) Capture(ctx context.Context) (capture.Frame, error) { return f(ctx) }

type classifierFunc func(context.Context, *image.RGBA) (classify.Result, error)

func (f classifierFunc) Classify(ctx context.Context, img *image.RGBA) (classify.Result, error) {
	return f(ctx, img)
}

func testFrame() capture.Frame {
	return capture.Frame{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), CapturedAt: time.Now()}
}

func okSource() capture.Source {
	return sourceFunc(func(context.Context) (capture.Frame, error) { return testFrame(), nil })
}

// scripted replays a sequence of classifications and then repeats the
// final entry.
type scripted struct {
	mu  sync.Mutex
	seq []classify.Result
	i   int
}

func (s *scripted) Classify(ctx context.Context, img *image.RGBA) (classify.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.i
	if idx >= len(s.seq) {
		idx = len(s.seq) - 1
	}
	s.i++
	r := s.seq[idx]
	r.At = time.Now()
	return r, nil
}

func testSettings() *config.Settings {
	cfg := config.DefaultSettings()
	cfg.PollIntervalMs = 2
	cfg.CaptureTimeoutMs = 50
	cfg.DebounceCount = 2
	cfg.MaxConsecutiveFail = 5
	return cfg
}

func waitForRun(t *testing.T, c *Controller, want RunState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status().Run == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("controller never reached %v, status %+v", want, c.Status())
}

func TestController_ToggleSemantics(t *testing.T) {
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		return classify.Result{State: classify.StateInactive, Confidence: 0.9, At: time.Now()}, nil
	})
	c := NewController(testSettings(), okSource(), cls, nil, discardLogger())
	defer c.Stop()

	if c.Status().Run != RunStopped {
		t.Fatalf("fresh controller is %v, want stopped", c.Status().Run)
	}
	c.Start()
	waitForRun(t, c, RunRunning)

	c.Toggle()
	if got := c.Status(); got.Run != RunPaused || got.Reason == "" {
		t.Fatalf("after toggle: %+v, want paused with reason", got)
	}
	c.Toggle()
	if got := c.Status(); got.Run != RunRunning || got.Reason != "" {
		t.Fatalf("after second toggle: %+v, want running", got)
	}

	c.Stop()
	if c.Status().Run != RunStopped {
		t.Fatal("stop did not stop the controller")
	}
	c.Toggle()
	if c.Status().Run != RunStopped {
		t.Fatal("toggle while stopped changed the run state")
	}
}

func TestController_AutoPausesAfterConsecutiveUnknowns(t *testing.T) {
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		return classify.Result{State: classify.StateUnknown, At: time.Now()}, nil
	})
	c := NewController(testSettings(), okSource(), cls, nil, discardLogger())
	defer c.Stop()

	c.Start()
	waitForRun(t, c, RunPaused)

	got := c.StatusString()
	if !strings.HasPrefix(got, "Paused: ") {
		t.Fatalf("status string %q, want a Paused reason", got)
	}
}

func TestController_CaptureErrorsCountTowardAutoPause(t *testing.T) {
	var classifications atomic.Int64
	src := sourceFunc(func(context.Context) (capture.Frame, error) {
		return capture.Frame{}, errors.New("display gone")
	})
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		classifications.Add(1)
		return classify.Result{State: classify.StateInactive, At: time.Now()}, nil
	})
	cfg := testSettings()
	cfg.MaxConsecutiveFail = 3
	c := NewController(cfg, src, cls, nil, discardLogger())
	defer c.Stop()

	c.Start()
	waitForRun(t, c, RunPaused)

	if classifications.Load() != 0 {
		t.Fatal("classifier ran on a failed capture")
	}
}

func TestController_DecisiveResultResetsFailureCount(t *testing.T) {
	var n atomic.Int64
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		// Two unknowns, then a decisive frame, repeating. The failure
		// counter never reaches the limit of three.
		if n.Add(1)%3 == 0 {
			return classify.Result{State: classify.StateInactive, Confidence: 0.9, At: time.Now()}, nil
		}
		return classify.Result{State: classify.StateUnknown, At: time.Now()}, nil
	})
	cfg := testSettings()
	cfg.MaxConsecutiveFail = 3
	c := NewController(cfg, okSource(), cls, nil, discardLogger())
	defer c.Stop()

	c.Start()
	waitForRun(t, c, RunRunning)
	time.Sleep(100 * time.Millisecond)

	if got := c.Status().Run; got != RunRunning {
		t.Fatalf("controller is %v, want still running", got)
	}
}

func TestController_DispatchesOnCommittedTriggerTransition(t *testing.T) {
	var presses atomic.Int64
	cls := &scripted{seq: []classify.Result{
		{State: classify.StateActive, Confidence: 0.95},
		{State: classify.StateActive, Confidence: 0.95},
		{State: classify.StateInactive, Confidence: 0.92},
		{State: classify.StateInactive, Confidence: 0.92},
	}}
	d := NewKeyDispatcher(IconInactive, 0, func() error {
		presses.Add(1)
		return nil
	}, discardLogger())
	c := NewController(testSettings(), okSource(), cls, d, discardLogger())
	defer c.Stop()

	var changes []Change
	var mu sync.Mutex
	c.AddListener(func(ch Change) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
	})

	c.Start()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && presses.Load() == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if presses.Load() != 1 {
		t.Fatalf("presses = %d, want exactly 1", presses.Load())
	}
	time.Sleep(50 * time.Millisecond)
	if presses.Load() != 1 {
		t.Fatalf("presses = %d after settling, want exactly 1", presses.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Fatalf("listener saw %d changes, want 2", len(changes))
	}
	if changes[0].To != IconActive || changes[1].To != IconInactive {
		t.Fatalf("changes = %+v, want inactive->active->inactive", changes)
	}
	if got := c.Status().Icon; got != IconInactive {
		t.Fatalf("status icon = %v, want inactive", got)
	}
}

func TestController_StopJoinsInFlightCycleBeforeRestart(t *testing.T) {
	var inFlight, peak atomic.Int64
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		cur := inFlight.Add(1)
		for {
			m := peak.Load()
			if cur <= m || peak.CompareAndSwap(m, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return classify.Result{State: classify.StateInactive, Confidence: 0.9, At: time.Now()}, nil
	})
	c := NewController(testSettings(), okSource(), cls, nil, discardLogger())

	for i := 0; i < 5; i++ {
		c.Start()
		time.Sleep(10 * time.Millisecond)
		c.Stop()
		if n := inFlight.Load(); n != 0 {
			t.Fatalf("Stop returned with %d classifications still in flight", n)
		}
		c.Start()
	}
	c.Stop()

	if got := peak.Load(); got > 1 {
		t.Fatalf("restart overlapped loops: %d concurrent classifications", got)
	}
}

func TestController_AutoResumeOnlyAfterAutoPause(t *testing.T) {
	cls := classifierFunc(func(context.Context, *image.RGBA) (classify.Result, error) {
		return classify.Result{State: classify.StateInactive, Confidence: 0.9, At: time.Now()}, nil
	})
	c := NewController(testSettings(), okSource(), cls, nil, discardLogger())
	defer c.Stop()

	c.Start()
	waitForRun(t, c, RunRunning)

	c.Toggle() // manual pause
	c.AutoResume()
	if c.Status().Run != RunPaused {
		t.Fatal("auto-resume overrode a manual pause")
	}

	c.Toggle()
	c.AutoPause("window lost")
	if got := c.Status(); got.Run != RunPaused || got.Reason != "window lost" {
		t.Fatalf("after auto-pause: %+v", got)
	}
	c.AutoResume()
	if c.Status().Run != RunRunning {
		t.Fatal("auto-resume did not undo an automatic pause")
	}
}
