package classify

import (
	"context"
	"fmt"
	"image"
	"time"
)

// State enumerates per-frame icon classifications. Unknown means the frame
// was not decisive; only the debounce layer holds a durable belief.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateInactive
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Result is one per-frame classification. Results are produced fresh each
// poll and never mutated.
type Result struct {
	State      State
	Confidence float64
	At         time.Time
}

// Classifier turns a captured region frame into a classification. Classify
// must be a pure function of the frame plus loaded reference data; transient
// inference failures return an error and are treated as Unknown upstream.
type Classifier interface {
	Classify(ctx context.Context, frame *image.RGBA) (Result, error)
}

// ConfigError is a fatal startup failure: a missing or malformed template or
// model artifact, or reference data whose dimensions do not match the capture
// region. It is never produced per-frame.
type ConfigError struct {
	Artifact string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier config: %s: %s: %v", e.Artifact, e.Reason, e.Err)
	}
	return fmt.Sprintf("classifier config: %s: %s", e.Artifact, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }
