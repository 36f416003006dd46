package capture

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func fixedBounds(r image.Rectangle) func() (image.Rectangle, error) {
	return func() (image.Rectangle, error) { return r, nil }
}

func solidGrab(lum byte) func(image.Rectangle) (*image.RGBA, error) {
	return func(rect image.Rectangle) (*image.RGBA, error) {
		img := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = lum, lum, lum, 255
		}
		return img, nil
	}
}

func TestScreenSource_CaptureCopiesRegion(t *testing.T) {
	s := NewScreenSource(Region{X: 10, Y: 10, Width: 20, Height: 20}, nil)
	s.bounds = fixedBounds(image.Rect(0, 0, 800, 600))
	s.grab = solidGrab(90)

	f, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Image == nil || f.Image.Bounds().Dx() != 20 || f.Image.Bounds().Dy() != 20 {
		t.Fatalf("unexpected frame bounds: %v", f.Image.Bounds())
	}
	if f.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", f.Sequence)
	}
	if f.Image.Pix[0] != 90 {
		t.Fatalf("pixels not copied, got %d", f.Image.Pix[0])
	}
	RecycleFrame(f)
}

func TestScreenSource_OffScreenRegionFails(t *testing.T) {
	s := NewScreenSource(Region{X: 790, Y: 10, Width: 20, Height: 20}, nil)
	s.bounds = fixedBounds(image.Rect(0, 0, 800, 600))
	s.grab = solidGrab(0)

	_, err := s.Capture(context.Background())
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if got := s.Stats().Failures; got != 1 {
		t.Fatalf("expected 1 failure, got %d", got)
	}
}

func TestScreenSource_TimeoutBoundsHungGrab(t *testing.T) {
	s := NewScreenSource(Region{Width: 10, Height: 10}, nil)
	s.bounds = fixedBounds(image.Rect(0, 0, 800, 600))
	s.grab = func(rect image.Rectangle) (*image.RGBA, error) {
		time.Sleep(500 * time.Millisecond)
		return image.NewRGBA(rect.Sub(rect.Min)), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.Capture(ctx)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 250*time.Millisecond {
		t.Fatalf("capture did not honor deadline")
	}
}

func TestScreenSource_GrabErrorIsTransient(t *testing.T) {
	s := NewScreenSource(Region{Width: 10, Height: 10}, nil)
	s.bounds = fixedBounds(image.Rect(0, 0, 800, 600))
	s.grab = func(image.Rectangle) (*image.RGBA, error) { return nil, errors.New("bitblt failed") }

	_, err := s.Capture(context.Background())
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected capture error, got %v", err)
	}
	// Source must remain usable for the next poll.
	s.grab = solidGrab(10)
	if _, err := s.Capture(context.Background()); err != nil {
		t.Fatalf("source did not recover: %v", err)
	}
}
