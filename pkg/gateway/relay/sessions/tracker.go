package sessions

import (
	"context"
	"sync"
)

// Tracker counts live websocket connections so shutdown can cancel them
// and wait for their session loops to settle with the registry.
type Tracker struct {
	mu    sync.Mutex
	conns map[string]*trackedConn
	wg    sync.WaitGroup
}

type trackedConn struct {
	cancel func()
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{conns: make(map[string]*trackedConn)}
}

// Track registers a connection's cancel function keyed by session. A
// reconnect under the same key displaces the old holder: its context is
// cancelled and ownership passes to the new connection, while the old
// connection stays waited-on until its own untrack runs. The returned
// untrack is safe to call more than once.
func (t *Tracker) Track(sessionID string, cancel func()) (untrack func()) {
	entry := &trackedConn{cancel: cancel}

	t.mu.Lock()
	old := t.conns[sessionID]
	t.conns[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil && old.cancel != nil {
		old.cancel()
	}
	return func() { t.untrack(sessionID, entry) }
}

func (t *Tracker) untrack(sessionID string, entry *trackedConn) {
	entry.once.Do(func() {
		t.mu.Lock()
		if t.conns[sessionID] == entry {
			delete(t.conns, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// CancelAll cancels every live connection and returns how many it hit.
func (t *Tracker) CancelAll() (canceled int) {
	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.conns {
		if entry.cancel != nil {
			cancels = append(cancels, entry.cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every tracked connection has untracked, or ctx
// expires. Returns false on timeout.
func (t *Tracker) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
