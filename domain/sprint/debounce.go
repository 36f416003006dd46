package sprint

import (
	"github.com/soocke/sprint-bot-go/domain/classify"
)

// Debouncer turns noisy per-frame classifications into committed state
// transitions. A transition is committed only after need consecutive
// classifications agree on the opposite state; Unknown frames and frames
// that match the current state reset the pending streak.
//
// Debouncer is not safe for concurrent use. The controller owns it and
// calls Observe from its loop goroutine only.
type Debouncer struct {
	current   IconState
	candidate IconState
	streak    int
	need      int
}

func NewDebouncer(initial IconState, need int) *Debouncer {
	if need < 1 {
		need = 1
	}
	return &Debouncer{current: initial, need: need}
}

// Observe feeds one classification. It reports a Change with ok=true when
// the transition commits, exactly once per transition.
func (d *Debouncer) Observe(r classify.Result) (Change, bool) {
	var observed IconState
	switch r.State {
	case classify.StateActive:
		observed = IconActive
	case classify.StateInactive:
		observed = IconInactive
	default:
		d.streak = 0
		return Change{}, false
	}

	if observed == d.current {
		d.streak = 0
		return Change{}, false
	}

	if d.streak > 0 && observed == d.candidate {
		d.streak++
	} else {
		d.candidate = observed
		d.streak = 1
	}

	if d.streak < d.need {
		return Change{}, false
	}

	from := d.current
	d.current = observed
	d.streak = 0
	return Change{From: from, To: observed, At: r.At}, true
}

// Current returns the committed state.
func (d *Debouncer) Current() IconState {
	return d.current
}

// Reset discards any pending streak and forces the committed state.
func (d *Debouncer) Reset(state IconState) {
	d.current = state
	d.streak = 0
}
