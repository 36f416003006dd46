package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kbinani/screenshot"
)

// ScreenSource captures the configured region from the OS display. Each
// Capture is a fresh snapshot; nothing is cached. The OS grab runs on a
// worker goroutine so the context deadline bounds a hung platform call.
type ScreenSource struct {
	region Region
	logger *slog.Logger

	// grab and bounds are injectable for tests.
	grab   func(image.Rectangle) (*image.RGBA, error)
	bounds func() (image.Rectangle, error)

	sequence     atomic.Uint64
	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	lastCapture  atomic.Int64 // unix nanos
}

type grabResult struct {
	img *image.RGBA
	err error
}

// NewScreenSource constructs a frame source for the given region.
func NewScreenSource(region Region, logger *slog.Logger) *ScreenSource {
	return &ScreenSource{
		region: region,
		logger: logger,
		grab:   screenshot.CaptureRect,
		bounds: virtualScreenBounds,
	}
}

// virtualScreenBounds returns the union of all active display rectangles.
func virtualScreenBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays")
	}
	all := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all, nil
}

// Region returns the configured capture region.
func (s *ScreenSource) Region() Region { return s.region }

// Capture grabs one snapshot of the region. Failures are transient
// (*Error); the caller skips the cycle and retries at the next interval.
func (s *ScreenSource) Capture(ctx context.Context) (Frame, error) {
	if s.region.Empty() {
		return Frame{}, s.fail("empty capture region", nil)
	}
	screen, err := s.bounds()
	if err != nil {
		return Frame{}, s.fail("display unavailable", err)
	}
	rect := s.region.Rect()
	if !rect.In(screen) {
		return Frame{}, s.fail(fmt.Sprintf("region %v outside screen %v", rect, screen), nil)
	}

	start := time.Now()
	ch := make(chan grabResult, 1)
	go func() {
		img, gerr := s.grab(rect)
		ch <- grabResult{img: img, err: gerr}
	}()

	var res grabResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Frame{}, s.fail("capture timed out", ctx.Err())
	}
	if res.err != nil {
		return Frame{}, s.fail("os capture failed", res.err)
	}
	if res.img == nil || res.img.Bounds().Dx() != rect.Dx() || res.img.Bounds().Dy() != rect.Dy() {
		return Frame{}, s.fail("os capture returned wrong dimensions", nil)
	}

	// Copy into a pooled buffer so the loop can recycle it after classification.
	dst := acquireFrame(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	copyPixels(dst, res.img)

	elapsed := time.Since(start)
	s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
	s.captures.Add(1)
	now := time.Now()
	s.lastCapture.Store(now.UnixNano())
	return Frame{Image: dst, CapturedAt: now, Sequence: s.sequence.Add(1)}, nil
}

func (s *ScreenSource) fail(reason string, err error) *Error {
	s.failures.Add(1)
	if s.logger != nil {
		s.logger.Debug("capture failure", "reason", reason, "error", err)
	}
	return &Error{Reason: reason, Err: err}
}

// copyPixels copies src into dst row by row; both must have equal dimensions.
func copyPixels(dst, src *image.RGBA) {
	w4 := dst.Bounds().Dx() * 4
	h := dst.Bounds().Dy()
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w4], src.Pix[y*src.Stride:y*src.Stride+w4])
	}
}

// Stats returns a snapshot of source instrumentation counters.
func (s *ScreenSource) Stats() Stats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	var last time.Time
	if ns := s.lastCapture.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Captures:       captures,
		Failures:       s.failures.Load(),
		AvgCapture:     avg,
		LastCapture:    last,
		LatestSequence: s.sequence.Load(),
	}
}

var _ Source = (*ScreenSource)(nil)
