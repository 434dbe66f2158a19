package session

import (
	"sync"
	"time"
)

// IdleWatchdog is a one-shot inactivity timer armed while the keypad
// collector waits for more digits. Start re-arms it, Clear disarms it, and
// the callback fires at most once per arm. The watchdog is not re-armed
// after firing; the next digit press arms it again.
type IdleWatchdog struct {
	timeout time.Duration
	onIdle  func()

	mu    sync.Mutex
	timer *time.Timer
	armed bool
}

func NewIdleWatchdog(timeout time.Duration, onIdle func()) *IdleWatchdog {
	return &IdleWatchdog{timeout: timeout, onIdle: onIdle}
}

// Start arms the watchdog, cancelling any pending expiry first.
func (w *IdleWatchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.armed = true
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

// Clear disarms the watchdog. A timer that already fired is a no-op.
func (w *IdleWatchdog) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.armed = false
}

func (w *IdleWatchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

func (w *IdleWatchdog) fire() {
	w.mu.Lock()
	if !w.armed {
		w.mu.Unlock()
		return
	}
	w.armed = false
	w.timer = nil
	w.mu.Unlock()

	w.onIdle()
}
