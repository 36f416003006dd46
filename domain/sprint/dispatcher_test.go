package sprint

import (
	"errors"
	"testing"
	"time"
)

func TestKeyDispatcher_FiresOnTriggerState(t *testing.T) {
	var presses int
	d := NewKeyDispatcher(IconInactive, time.Second, func() error {
		presses++
		return nil
	}, discardLogger())

	if !d.OnChange(Change{From: IconActive, To: IconInactive, At: time.Now()}) {
		t.Fatal("transition to trigger state did not dispatch")
	}
	if presses != 1 {
		t.Fatalf("presses = %d, want 1", presses)
	}
}

func TestKeyDispatcher_IgnoresOtherTransitions(t *testing.T) {
	var presses int
	d := NewKeyDispatcher(IconInactive, time.Second, func() error {
		presses++
		return nil
	}, discardLogger())

	if d.OnChange(Change{From: IconInactive, To: IconActive, At: time.Now()}) {
		t.Fatal("transition away from trigger state dispatched")
	}
	if presses != 0 {
		t.Fatalf("presses = %d, want 0", presses)
	}
}

func TestKeyDispatcher_CooldownSuppressesRapidPresses(t *testing.T) {
	var presses int
	d := NewKeyDispatcher(IconInactive, time.Second, func() error {
		presses++
		return nil
	}, discardLogger())

	base := time.Now()
	d.now = func() time.Time { return base }
	d.OnChange(Change{To: IconInactive})

	d.now = func() time.Time { return base.Add(300 * time.Millisecond) }
	if d.OnChange(Change{To: IconInactive}) {
		t.Fatal("press inside cooldown window was not suppressed")
	}

	d.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	if !d.OnChange(Change{To: IconInactive}) {
		t.Fatal("press after cooldown expiry was suppressed")
	}
	if presses != 2 {
		t.Fatalf("presses = %d, want 2", presses)
	}
}

func TestKeyDispatcher_PressFailureStartsCooldown(t *testing.T) {
	var attempts int
	d := NewKeyDispatcher(IconInactive, time.Second, func() error {
		attempts++
		return errors.New("no input backend")
	}, discardLogger())

	base := time.Now()
	d.now = func() time.Time { return base }
	if !d.OnChange(Change{To: IconInactive}) {
		t.Fatal("failed press should still report an attempt")
	}
	d.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	d.OnChange(Change{To: IconInactive})
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (failure must not retry inside cooldown)", attempts)
	}
}
