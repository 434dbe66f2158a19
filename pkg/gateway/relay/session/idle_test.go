package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleWatchdogFires(t *testing.T) {
	var fired atomic.Int32
	w := NewIdleWatchdog(20*time.Millisecond, func() { fired.Add(1) })

	w.Start()

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("watchdog never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if w.Armed() {
		t.Fatalf("watchdog still armed after firing")
	}

	// One-shot: no second callback without a fresh Start.
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
}

func TestIdleWatchdogClearPreventsFiring(t *testing.T) {
	var fired atomic.Int32
	w := NewIdleWatchdog(30*time.Millisecond, func() { fired.Add(1) })

	w.Start()
	w.Clear()

	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired %d times after clear, want 0", got)
	}
	if w.Armed() {
		t.Fatalf("watchdog armed after clear")
	}
}

func TestIdleWatchdogStartReArms(t *testing.T) {
	var fired atomic.Int32
	w := NewIdleWatchdog(40*time.Millisecond, func() { fired.Add(1) })

	w.Start()
	time.Sleep(25 * time.Millisecond)
	w.Start()
	time.Sleep(25 * time.Millisecond)

	// The second Start reset the clock, so nothing has fired yet.
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired %d times before the re-armed deadline", got)
	}

	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
}
