// Package session runs one voice conversation over one websocket: frame
// dispatch, the keypad collector, the idle watchdog, and turn execution.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/dtmf"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/protocol"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/sessions"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/state"
	"github.com/voicerelay/voicerelay/pkg/gateway/runloop"
	"github.com/voicerelay/voicerelay/pkg/gateway/tools"
)

// idleTimeoutMessage is spoken when the keypad collector waits too long
// for the next digit.
const idleTimeoutMessage = "Session timed out due to inactivity."

type Config struct {
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	MaxMessageBytes int64
	IdleTimeout     time.Duration
	TurnTimeout     time.Duration
	Streaming       bool
	WelcomeGreeting string
	SystemPrompt    string
	SwitchDigit     string
}

type Deps struct {
	Registry  *sessions.Registry
	Runner    *runloop.Runner
	Languages *languages.Table
	Tracker   *sessions.Tracker
	Logger    *slog.Logger
}

// Session owns one websocket connection from upgrade to disconnect. All
// frame dispatch happens on the Serve goroutine; turns run on their own
// goroutine and report back through turnDone.
type Session struct {
	conn *websocket.Conn
	cfg  Config
	deps Deps

	writer    *writer
	collector *dtmf.Collector
	watchdog  *IdleWatchdog

	key  string
	conv *state.Conversation

	inbound    chan any
	turnDone   chan error
	turnActive bool

	graceful atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	untrack  func()
	logger   *slog.Logger
}

func New(conn *websocket.Conn, cfg Config, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		conn:      conn,
		cfg:       cfg,
		deps:      deps,
		writer:    newWriter(conn, cfg.PingInterval, cfg.WriteTimeout),
		collector: dtmf.NewCollector(cfg.SwitchDigit),
		inbound:   make(chan any, 16),
		turnDone:  make(chan error, 1),
		logger:    logger,
	}
	s.watchdog = NewIdleWatchdog(cfg.IdleTimeout, s.onIdle)
	return s
}

// Serve runs the session until the peer disconnects, the context is
// cancelled, or a handoff ends the call. It always settles the session
// with the registry before returning.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.cancel = cancel
	defer cancel()

	if s.deps.Tracker != nil {
		// Tracked under a placeholder until setup names the call; the
		// deferred call reads s.untrack late so the re-key takes effect.
		s.untrack = s.deps.Tracker.Track(uuid.NewString(), cancel)
		defer func() { s.untrack() }()
	}

	go s.writer.run(ctx)
	go s.readLoop()

	defer s.settle()
	defer s.watchdog.Clear()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.turnDone:
			s.turnActive = false
			if err != nil && !errors.Is(err, runloop.ErrInterrupted) && !errors.Is(err, context.Canceled) {
				s.logger.Error("turn failed", "session", s.key, "error", err)
				s.sendError("agent failed to respond")
			}
		case frame, ok := <-s.inbound:
			if !ok {
				return nil
			}
			s.dispatch(frame)
		}
	}
}

// settle hands the conversation back to the registry. A handoff or end
// frame deletes the session immediately; a plain disconnect starts the
// reconnect grace period.
func (s *Session) settle() {
	if s.key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.graceful.Load() {
		s.deps.Registry.End(ctx, s.key)
		return
	}
	s.deps.Registry.Release(ctx, s.key)
}

func (s *Session) readLoop() {
	defer close(s.inbound)

	if s.cfg.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	if s.cfg.ReadTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		})
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if s.cfg.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			var unknown *protocol.UnknownTypeError
			if errors.As(err, &unknown) {
				s.logger.Warn("ignoring unknown frame type", "session", s.key, "type", unknown.Type)
				continue
			}
			s.sendError(err.Error())
			continue
		}
		s.inbound <- frame
	}
}

func (s *Session) dispatch(frame any) {
	if _, isSetup := frame.(protocol.Setup); s.conv == nil && !isSetup {
		s.sendError("session not initialized")
		return
	}

	switch f := frame.(type) {
	case protocol.Setup:
		s.handleSetup(f)
	case protocol.Prompt:
		s.handlePrompt(f)
	case protocol.Interrupt:
		s.handleInterrupt(f)
	case protocol.DTMF:
		s.handleDTMF(f)
	case protocol.InboundError:
		s.logger.Warn("relay reported error", "session", s.key, "description", f.Description)
	}
}

func (s *Session) handleSetup(setup protocol.Setup) {
	if s.conv != nil {
		s.sendError("session already initialized")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	acquired := s.deps.Registry.Acquire(ctx, setup.Key(), s.cfg.SystemPrompt)
	cancel()

	s.key = setup.Key()
	s.conv = acquired.Conv
	if s.deps.Tracker != nil {
		// Re-key under the call. A still-connected holder of the same call
		// is displaced: its context is cancelled and ownership moves here.
		prev := s.untrack
		s.untrack = s.deps.Tracker.Track(s.key, s.cancel)
		prev()
	}
	s.logger.Info("session started",
		"session", s.key,
		"from", setup.From,
		"to", setup.To,
		"direction", setup.Direction,
		"resumed", acquired.Resumed,
		"restored", acquired.Restored,
	)

	if acquired.Resumed {
		// Live object survived the blip; hand it back untouched and wait
		// for the caller's next utterance.
		return
	}
	if acquired.Restored {
		// Rebuilt from a snapshot after a longer gap. Let the model pick
		// the thread back up instead of greeting from scratch.
		s.conv.Append(types.SystemMessage("The caller has reconnected. Briefly acknowledge the interruption and continue where the conversation left off."))
		s.startTurn(nil)
		return
	}

	if s.cfg.WelcomeGreeting != "" {
		s.send(protocol.NewText(s.cfg.WelcomeGreeting, true))
		s.conv.Append(types.AssistantMessage(s.cfg.WelcomeGreeting))
	}
	// The greeting invites a keypad language choice, so the selector is
	// armed from the first digit.
	s.collector.SetMode(dtmf.ModeLanguage)
}

func (s *Session) handlePrompt(p protocol.Prompt) {
	if s.turnActive {
		s.sendError("a response is already in progress")
		return
	}
	s.watchdog.Clear()
	s.startTurn([]types.Message{types.UserMessage(p.VoicePrompt)})
}

func (s *Session) handleInterrupt(i protocol.Interrupt) {
	s.logger.Info("caller interrupted",
		"session", s.key,
		"utterance", i.UtteranceUntilInterrupt,
		"durationMs", i.DurationUntilInterrupt,
	)
	s.conv.Interrupt()
}

func (s *Session) handleDTMF(d protocol.DTMF) {
	result := s.collector.Press(d.Digit)

	switch result.Status {
	case dtmf.StatusCollecting:
		s.watchdog.Start()

	case dtmf.StatusComplete:
		s.watchdog.Clear()
		if result.Mode == dtmf.ModeLanguage {
			s.switchToKeypadLanguage(result)
			return
		}
		s.collector.Reset()
		if s.turnActive {
			s.conv.Append(types.UserMessage(result.Message))
			return
		}
		s.startTurn([]types.Message{types.UserMessage(result.Message)})

	case dtmf.StatusInvalid:
		s.watchdog.Clear()
		s.send(protocol.NewText(result.Message, true))

	default:
		s.logger.Warn("unexpected keypad digit", "session", s.key, "digit", d.Digit)
	}
}

// switchToKeypadLanguage handles the single-digit language selector. The
// shortcut digit always means spanish, matching the greeting's offer.
func (s *Session) switchToKeypadLanguage(result dtmf.Result) {
	opt, ok := s.deps.Languages.Lookup("spanish")
	if !ok {
		s.logger.Error("language selector target not configured", "session", s.key)
		return
	}
	s.send(protocol.NewLanguage(opt.LocaleCode, opt.LocaleCode))
	s.conv.Append(types.SystemMessage(result.Message + " Respond in Spanish from now on."))
	s.collector.Reset()
}

func (s *Session) onIdle() {
	s.collector.Reset()
	s.send(protocol.NewText(idleTimeoutMessage, true))
	s.logger.Info("keypad input timed out", "session", s.key)
}

// startTurn runs the turn on its own goroutine under the serve context, so
// a disconnect or shutdown drain cancels an in-flight model call and the
// turn timeout bounds a hung one.
func (s *Session) startTurn(newMsgs []types.Message) {
	s.turnActive = true
	ctx := s.ctx
	cancel := context.CancelFunc(func() {})
	if s.cfg.TurnTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
	}
	go func() {
		defer cancel()
		if s.cfg.Streaming {
			s.turnDone <- s.deps.Runner.StreamTurn(ctx, s.conv, newMsgs, (*turnEvents)(s))
			return
		}
		final, effects, err := s.deps.Runner.CompleteTurn(ctx, s.conv, newMsgs)
		if err == nil {
			s.send(protocol.NewText(final.Content, true))
			for _, effect := range effects {
				s.applyEffect(effect)
			}
		}
		s.turnDone <- err
	}()
}

func (s *Session) applyEffect(effect tools.Effect) {
	switch effect.Kind {
	case tools.EffectSwitchLanguage:
		s.send(protocol.NewLanguage(effect.TTSLanguage, effect.TranscriptionLanguage))
	case tools.EffectCollectDigits:
		s.collector.SetMode(dtmf.Mode(effect.CollectMode))
		s.watchdog.Start()
	case tools.EffectHandoff:
		s.graceful.Store(true)
		s.send(protocol.NewEnd(effect.HandoffData))
		s.cancel()
	}
}

func (s *Session) send(v any) {
	if err := s.writer.send(v); err != nil {
		s.logger.Warn("dropping outbound frame", "session", s.key, "error", err)
	}
}

func (s *Session) sendError(message string) {
	s.send(protocol.NewError(message))
}

// turnEvents adapts the session to the turn loop's event callbacks. The
// writer and effect targets are all safe to touch from the turn goroutine.
type turnEvents Session

func (e *turnEvents) PartialToken(token string) {
	(*Session)(e).send(protocol.NewText(token, false))
}

// TurnComplete emits the terminal increment. Streamed frames always carry
// last=false; only the non-streaming path sends a last=true frame.
func (e *turnEvents) TurnComplete(finalToken string) {
	if finalToken != "" {
		(*Session)(e).send(protocol.NewText(finalToken, false))
	}
}

func (e *turnEvents) Effect(effect tools.Effect) {
	(*Session)(e).applyEffect(effect)
}

func (e *turnEvents) Interrupted() {
	// Nothing to send. The relay already cut playback; the next prompt
	// frame carries what the caller said over us.
}
