// Package state holds the live per-call conversation object and the
// snapshot store that lets a conversation survive a dropped connection.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// Conversation is the live, possibly reconnect-spanning state of one call.
// History is append-only within a turn and replaceable wholesale on restore.
// The interrupted flag is the cooperative cancellation signal checked by the
// turn loop between stream chunks.
type Conversation struct {
	id string

	mu       sync.Mutex
	messages []types.Message

	interrupted atomic.Bool
	lastActive  atomic.Int64
}

func NewConversation(id string, systemPrompt string) *Conversation {
	c := &Conversation{id: id}
	if systemPrompt != "" {
		c.messages = []types.Message{types.SystemMessage(systemPrompt)}
	}
	c.Touch()
	return c
}

func (c *Conversation) ID() string {
	return c.id
}

// Append adds messages to the history in order.
func (c *Conversation) Append(msgs ...types.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msgs...)
	c.mu.Unlock()
	c.Touch()
}

// Snapshot returns a copy of the history safe to hand to another goroutine.
func (c *Conversation) Snapshot() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Replace swaps the entire history, used when hydrating from a snapshot.
func (c *Conversation) Replace(msgs []types.Message) {
	c.mu.Lock()
	c.messages = make([]types.Message, len(msgs))
	copy(c.messages, msgs)
	c.mu.Unlock()
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Interrupt sets the cancellation flag for the in-flight turn.
func (c *Conversation) Interrupt() {
	c.interrupted.Store(true)
}

// ClearInterrupt resets the flag at the start of each new turn.
func (c *Conversation) ClearInterrupt() {
	c.interrupted.Store(false)
}

func (c *Conversation) Interrupted() bool {
	return c.interrupted.Load()
}

// Touch records activity; called on every inbound frame and tool completion.
func (c *Conversation) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Conversation) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}
