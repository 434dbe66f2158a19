package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// ErrNotFound is returned when no snapshot exists for a session, including
// when one existed but its age exceeded the store's expiry window.
var ErrNotFound = errors.New("snapshot not found")

// Store persists serialized conversation histories across reconnects.
// Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, sessionID string, history []types.Message) error
	// Restore returns ErrNotFound for missing and for expired snapshots;
	// an expired snapshot is deleted as a side effect.
	Restore(ctx context.Context, sessionID string) ([]types.Message, error)
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	payload []byte
	savedAt time.Time
}

// MemoryStore is the default in-process Store. Snapshots are held as JSON
// so restore exercises the same round trip an external store would.
type MemoryStore struct {
	expiry time.Duration
	now    func() time.Time

	mu        sync.Mutex
	snapshots map[string]memoryEntry
}

func NewMemoryStore(expiry time.Duration) *MemoryStore {
	return &MemoryStore{
		expiry:    expiry,
		now:       time.Now,
		snapshots: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, history []types.Message) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", sessionID, err)
	}

	s.mu.Lock()
	s.snapshots[sessionID] = memoryEntry{payload: payload, savedAt: s.now()}
	s.cleanupLocked()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Restore(ctx context.Context, sessionID string) ([]types.Message, error) {
	s.mu.Lock()
	entry, ok := s.snapshots[sessionID]
	if ok && s.now().Sub(entry.savedAt) > s.expiry {
		delete(s.snapshots, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}

	var history []types.Message
	if err := json.Unmarshal(entry.payload, &history); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot for %s: %w", sessionID, err)
	}
	return history, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.snapshots, sessionID)
	s.mu.Unlock()
	return nil
}

// cleanupLocked drops any expired snapshots, piggybacked on Save so the map
// does not grow without bound between restores.
func (s *MemoryStore) cleanupLocked() {
	now := s.now()
	for id, entry := range s.snapshots {
		if now.Sub(entry.savedAt) > s.expiry {
			delete(s.snapshots, id)
		}
	}
}
