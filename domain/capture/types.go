package capture

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Region is the fixed screen rectangle the sprint icon is expected in.
// It is immutable once the detection loop starts.
type Region struct {
	X, Y, Width, Height int
}

// Rect converts the region to an image.Rectangle in screen coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Frame carries one captured snapshot of the region and metadata.
// A frame is owned by the classification call that consumed it; callers
// must not retain it past that call and should return it via RecycleFrame.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Source provides on-demand snapshots of the capture region. Capture must
// honor the context deadline so a hung OS call cannot stall the caller.
type Source interface {
	Capture(ctx context.Context) (Frame, error)
}

// Error is a transient capture failure: region off-screen, display change,
// or an OS capture API failure. Callers skip the cycle and retry later.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Reason, e.Err)
	}
	return "capture: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Stats summarises frame source behaviour for instrumentation.
type Stats struct {
	Captures       uint64
	Failures       uint64
	AvgCapture     time.Duration
	LastCapture    time.Time
	LatestSequence uint64
}
