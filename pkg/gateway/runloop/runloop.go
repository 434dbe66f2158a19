// Package runloop drives the tool-calling turn loop: one model request,
// optional concurrent tool batches, and continuation until the model
// produces a final answer.
package runloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/state"
	"github.com/voicerelay/voicerelay/pkg/gateway/tools"
)

// ErrInterrupted is returned when the caller spoke over an in-flight
// streaming response and the turn exited at a chunk boundary.
var ErrInterrupted = errors.New("turn interrupted")

// ErrBudgetExhausted is returned when a turn keeps producing tool calls
// past the configured model-call budget.
var ErrBudgetExhausted = errors.New("model call budget exhausted")

// Events receives turn progress. PartialToken fires once per streamed text
// increment, in production order. TurnComplete fires exactly once per
// successful turn with the terminal increment (empty for non-streaming use).
// Effect fires for each tool side effect in issue order.
type Events interface {
	PartialToken(token string)
	TurnComplete(finalToken string)
	Effect(effect tools.Effect)
	Interrupted()
}

// Runner executes turns against one model backend and tool catalogue. It is
// stateless across turns; all conversation state lives in the Conversation.
type Runner struct {
	provider core.Provider
	registry *tools.Registry
	opts     Options
	logger   *slog.Logger
}

type Options struct {
	Model                string
	Temperature          *float64
	MaxTokens            int
	MaxModelCallsPerTurn int
	ToolTimeout          time.Duration
}

func NewRunner(provider core.Provider, registry *tools.Registry, opts Options, logger *slog.Logger) *Runner {
	if opts.MaxModelCallsPerTurn <= 0 {
		opts.MaxModelCallsPerTurn = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{provider: provider, registry: registry, opts: opts, logger: logger}
}

func (r *Runner) request(conv *state.Conversation) *core.TurnRequest {
	return &core.TurnRequest{
		Model:       r.opts.Model,
		Messages:    conv.Snapshot(),
		Tools:       r.registry.Definitions(),
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	}
}

// CompleteTurn runs one blocking turn. New messages are appended first;
// they may be empty on the restore path. The loop repeats while responses
// carry tool calls and returns the final assistant message along with every
// tool side effect in issue order.
func (r *Runner) CompleteTurn(ctx context.Context, conv *state.Conversation, newMsgs []types.Message) (*types.Message, []tools.Effect, error) {
	conv.ClearInterrupt()
	conv.Append(newMsgs...)

	var effects []tools.Effect
	for call := 0; call < r.opts.MaxModelCallsPerTurn; call++ {
		resp, err := r.provider.Invoke(ctx, r.request(conv))
		if err != nil {
			return nil, effects, fmt.Errorf("model request: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			conv.Append(*resp)
			return resp, effects, nil
		}

		batchEffects, err := r.runToolBatch(ctx, conv, *resp)
		if err != nil {
			return nil, effects, err
		}
		effects = append(effects, batchEffects...)
	}
	return nil, effects, ErrBudgetExhausted
}

// StreamTurn runs one streaming turn, delivering increments through events.
// The interrupted flag is checked once per chunk: text already delivered is
// not retracted, but an interrupted turn appends nothing to history.
func (r *Runner) StreamTurn(ctx context.Context, conv *state.Conversation, newMsgs []types.Message, events Events) error {
	conv.ClearInterrupt()
	conv.Append(newMsgs...)

	for call := 0; call < r.opts.MaxModelCallsPerTurn; call++ {
		stream, err := r.provider.Stream(ctx, r.request(conv))
		if err != nil {
			return fmt.Errorf("model stream: %w", err)
		}

		final, err := r.consumeStream(ctx, conv, stream, events)
		if err != nil {
			return err
		}
		if final {
			return nil
		}
	}
	return ErrBudgetExhausted
}

// consumeStream drains one model stream. It returns final=true when the
// stream ended the turn, false when a tool batch ran and the outer loop
// should request a continuation.
func (r *Runner) consumeStream(ctx context.Context, conv *state.Conversation, stream core.ChunkStream, events Events) (bool, error) {
	defer stream.Close()

	acc := NewStreamAccumulator()
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			// Backend closed without a finish marker; treat as a stop.
			conv.Append(acc.Message())
			events.TurnComplete("")
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("model stream: %w", err)
		}

		if conv.Interrupted() {
			events.Interrupted()
			return true, ErrInterrupted
		}

		acc.Apply(chunk)

		switch chunk.Finish {
		case types.FinishStop:
			conv.Append(acc.Message())
			events.TurnComplete(chunk.Token)
			return true, nil
		case types.FinishToolCalls:
			effects, err := r.runToolBatch(ctx, conv, acc.Message())
			if err != nil {
				return true, err
			}
			for _, effect := range effects {
				events.Effect(effect)
			}
			return false, nil
		default:
			if chunk.Token != "" {
				events.PartialToken(chunk.Token)
			}
		}
	}
}

type toolOutcome struct {
	content string
	effect  *tools.Effect
}

// runToolBatch executes the batch concurrently, then appends the assistant
// message that requested the calls together with one tool-role message per
// call, in issue order regardless of completion order. The append is a
// single call so a message arriving from another goroutine can never land
// between an assistant tool_calls message and its tool results. A failing
// tool never aborts the turn; its error text becomes the tool result.
func (r *Runner) runToolBatch(ctx context.Context, conv *state.Conversation, assistant types.Message) ([]tools.Effect, error) {
	calls := assistant.ToolCalls

	outcomes := make([]toolOutcome, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			callCtx := gctx
			if r.opts.ToolTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, r.opts.ToolTimeout)
				defer cancel()
			}
			result, err := r.registry.Execute(callCtx, call)
			if err != nil {
				r.logger.Warn("tool call failed", "tool", call.Name, "error", err)
				outcomes[i] = toolOutcome{content: fmt.Sprintf("Error executing tool: %s", err)}
				return nil
			}
			outcomes[i] = toolOutcome{content: result.Content, effect: result.Effect}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := make([]types.Message, 0, len(calls)+1)
	batch = append(batch, assistant)
	var effects []tools.Effect
	for i, call := range calls {
		batch = append(batch, types.ToolMessage(outcomes[i].content, call.ID))
		if outcomes[i].effect != nil {
			effects = append(effects, *outcomes[i].effect)
		}
	}
	conv.Append(batch...)
	return effects, nil
}
