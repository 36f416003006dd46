package classify

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"time"
)

// TemplateMatcher classifies frames by correlating them against one stored
// reference template per known state ("sprint on" and "sprint off").
type TemplateMatcher struct {
	on        *templateStats
	off       *templateStats
	threshold float64
	logger    *slog.Logger
}

// NewTemplateMatcher loads the two reference templates and validates that
// both match the capture region dimensions exactly. Any load or dimension
// failure is a *ConfigError: fatal at startup, never per-frame.
func NewTemplateMatcher(onPath, offPath string, regionW, regionH int, threshold float64, logger *slog.Logger) (*TemplateMatcher, error) {
	on, err := loadTemplate(onPath, regionW, regionH)
	if err != nil {
		return nil, err
	}
	off, err := loadTemplate(offPath, regionW, regionH)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("templates loaded", "on", onPath, "off", offPath, "width", regionW, "height", regionH)
	}
	return &TemplateMatcher{on: on, off: off, threshold: threshold, logger: logger}, nil
}

func loadTemplate(path string, regionW, regionH int) (*templateStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Artifact: path, Reason: "template not readable", Err: err}
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ConfigError{Artifact: path, Reason: "template not decodable", Err: err}
	}
	b := img.Bounds()
	if b.Dx() != regionW || b.Dy() != regionH {
		return nil, &ConfigError{
			Artifact: path,
			Reason:   fmt.Sprintf("template is %dx%d but capture region is %dx%d", b.Dx(), b.Dy(), regionW, regionH),
		}
	}
	st := precomputeTemplate(img)
	if st == nil {
		return nil, &ConfigError{Artifact: path, Reason: "template has no pixels"}
	}
	return st, nil
}

// Match returns the better-correlating state and its raw score without
// applying the decision threshold. Used by the fused classifier to keep the
// template leaning when the score lands in the ambiguous band.
func (m *TemplateMatcher) Match(frame *image.RGBA) (State, float64) {
	gray, mean, std := frameGray(frame)
	onScore := scoreNCC(gray, mean, std, m.on)
	offScore := scoreNCC(gray, mean, std, m.off)
	if onScore >= offScore {
		return StateActive, onScore
	}
	return StateInactive, offScore
}

// Classify applies the decision threshold to the best template correlation.
// Scores below the threshold classify as Unknown, carrying the best score.
func (m *TemplateMatcher) Classify(_ context.Context, frame *image.RGBA) (Result, error) {
	state, score := m.Match(frame)
	now := time.Now()
	if score < m.threshold {
		return Result{State: StateUnknown, Confidence: score, At: now}, nil
	}
	return Result{State: state, Confidence: score, At: now}, nil
}

var _ Classifier = (*TemplateMatcher)(nil)
