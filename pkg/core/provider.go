// Package core defines the model-backend contract consumed by the turn loop.
package core

import (
	"context"
	"errors"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

// ErrNoResponse is returned when the backend answers without any candidate
// message, which callers treat as a failed turn.
var ErrNoResponse = errors.New("model returned no response")

// TurnRequest carries one model invocation: the full history plus the tool
// catalogue. Providers must not mutate either slice.
type TurnRequest struct {
	Model       string
	Messages    []types.Message
	Tools       []types.ToolDefinition
	Temperature *float64
	MaxTokens   int
}

// ChunkStream yields ordered response increments. Next returns io.EOF after
// the terminal chunk. Close releases the underlying connection and is safe
// to call more than once.
type ChunkStream interface {
	Next() (*types.Chunk, error)
	Close() error
}

// Provider is a language-model backend. Invoke performs a blocking
// completion; Stream returns increments as they arrive.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, req *TurnRequest) (*types.Message, error)
	Stream(ctx context.Context, req *TurnRequest) (ChunkStream, error)
}
