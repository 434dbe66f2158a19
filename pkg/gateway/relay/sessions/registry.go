// Package sessions maps call identifiers to live conversation objects and
// schedules their teardown after a disconnect grace period.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voicerelay/voicerelay/pkg/gateway/relay/state"
)

// Acquired describes how a session came into a connection's hands.
type Acquired struct {
	Conv *state.Conversation
	// Resumed is true when the live object survived a short disconnect and
	// was handed back untouched.
	Resumed bool
	// Restored is true when the conversation was rebuilt from a snapshot.
	Restored bool
}

type entry struct {
	conv *state.Conversation
	// conns counts connections currently attached to the live object; the
	// grace timer only arms when it reaches zero.
	conns int
	timer *time.Timer
}

// Registry owns the two-tier recovery path: a live map for short blips
// (grace-period fast path) and the snapshot store for longer gaps.
type Registry struct {
	store  state.Store
	grace  time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(store state.Store, grace time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		grace:    grace,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Acquire hands out the session for sessionID: the live object if one is
// within its grace period (cancelling the pending deletion), a snapshot
// rebuild if the store has an unexpired one, or a fresh conversation seeded
// with the system prompt.
func (r *Registry) Acquire(ctx context.Context, sessionID, systemPrompt string) Acquired {
	r.mu.Lock()
	if e, ok := r.sessions[sessionID]; ok {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.conns++
		r.mu.Unlock()
		r.logger.Info("session resumed from live object", "session_id", sessionID)
		return Acquired{Conv: e.conv, Resumed: true}
	}
	r.mu.Unlock()

	conv := state.NewConversation(sessionID, systemPrompt)
	restored := false

	history, err := r.store.Restore(ctx, sessionID)
	switch {
	case err == nil:
		conv.Replace(history)
		restored = true
		r.logger.Info("session restored from snapshot", "session_id", sessionID, "messages", len(history))
	case errors.Is(err, state.ErrNotFound):
	default:
		// Persistence trouble never blocks a new call.
		r.logger.Warn("snapshot restore failed", "session_id", sessionID, "error", err)
	}

	r.mu.Lock()
	r.sessions[sessionID] = &entry{conv: conv, conns: 1}
	r.mu.Unlock()

	return Acquired{Conv: conv, Restored: restored}
}

// Release is called on disconnect. It persists a snapshot and schedules the
// live object's removal after the grace period unless a reconnect reclaims
// it first.
func (r *Registry) Release(ctx context.Context, sessionID string) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := r.store.Save(ctx, sessionID, e.conv.Snapshot()); err != nil {
		r.logger.Warn("snapshot save failed", "session_id", sessionID, "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[sessionID]; ok && cur == e {
		if e.conns > 0 {
			e.conns--
		}
		if e.conns > 0 {
			// Ownership was handed to a newer connection; the live object
			// stays put.
			return
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		e.timer = time.AfterFunc(r.grace, func() {
			r.expire(sessionID, e)
		})
	}
}

// End removes the session immediately and deletes its snapshot; called on
// graceful call completion (handoff or hangup acknowledged).
func (r *Registry) End(ctx context.Context, sessionID string) {
	r.mu.Lock()
	if e, ok := r.sessions[sessionID]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if err := r.store.Delete(ctx, sessionID); err != nil {
		r.logger.Warn("snapshot delete failed", "session_id", sessionID, "error", err)
	}
}

func (r *Registry) expire(sessionID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[sessionID]; ok && cur == e && e.conns == 0 {
		delete(r.sessions, sessionID)
		r.logger.Info("session grace period expired", "session_id", sessionID)
	}
}

// Len reports the number of live sessions, grace-pending included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
