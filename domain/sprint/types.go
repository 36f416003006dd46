package sprint

import (
	"time"
)

// IconState is the durable belief about the sprint icon. Unlike a per-frame
// classification it is never Unknown.
type IconState int

const (
	IconInactive IconState = iota
	IconActive
)

func (s IconState) String() string {
	if s == IconActive {
		return "active"
	}
	return "inactive"
}

// IconStateFromString parses a configured state name. Anything other than
// "active" is the conservative default, inactive.
func IconStateFromString(s string) IconState {
	if s == "active" {
		return IconActive
	}
	return IconInactive
}

// Change is a committed state transition, emitted exactly once per
// transition by the debounce layer.
type Change struct {
	From IconState
	To   IconState
	At   time.Time
}

// ChangeListener is called on each committed transition.
type ChangeListener func(Change)

// RunState enumerates the detection loop lifecycle.
type RunState int

const (
	RunStopped RunState = iota
	RunRunning
	RunPaused
)

func (s RunState) String() string {
	switch s {
	case RunRunning:
		return "running"
	case RunPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Status is the controller snapshot read by the control surface while the
// polling loop writes it.
type Status struct {
	Run        RunState
	Icon       IconState
	Reason     string  // set while paused
	Confidence float64 // confidence of the most recent classification
}
