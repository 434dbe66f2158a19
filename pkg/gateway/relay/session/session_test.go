package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicerelay/voicerelay/pkg/core"
	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/sessions"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/state"
	"github.com/voicerelay/voicerelay/pkg/gateway/runloop"
	"github.com/voicerelay/voicerelay/pkg/gateway/tools"
)

// streamProvider yields one scripted stream per Stream call and records the
// requests it saw.
type streamProvider struct {
	mu       sync.Mutex
	scripts  [][]*types.Chunk
	requests []*core.TurnRequest
}

func (p *streamProvider) Name() string { return "scripted" }

func (p *streamProvider) Invoke(context.Context, *core.TurnRequest) (*types.Message, error) {
	return nil, errors.New("non-streaming path not scripted")
}

func (p *streamProvider) Stream(_ context.Context, req *core.TurnRequest) (core.ChunkStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.scripts) == 0 {
		return nil, errors.New("script exhausted")
	}
	chunks := p.scripts[0]
	p.scripts = p.scripts[1:]
	return &sliceStream{chunks: chunks}, nil
}

func (p *streamProvider) lastRequest() *core.TurnRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

// blockingProvider hangs until the turn context is cancelled.
type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }

func (blockingProvider) Invoke(ctx context.Context, _ *core.TurnRequest) (*types.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) Stream(ctx context.Context, _ *core.TurnRequest) (core.ChunkStream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type sliceStream struct {
	chunks []*types.Chunk
	pos    int
}

func (s *sliceStream) Next() (*types.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error { return nil }

type testHarness struct {
	client   *websocket.Conn
	url      string
	registry *sessions.Registry
	tracker  *sessions.Tracker
	store    *state.MemoryStore
}

func newHarness(t *testing.T, provider core.Provider, overrides ...func(*Config)) *testHarness {
	t.Helper()

	store := state.NewMemoryStore(30 * time.Minute)
	registry := sessions.NewRegistry(store, time.Minute, nil)
	tracker := sessions.NewTracker()
	catalogue, err := tools.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	runner := runloop.NewRunner(provider, catalogue, runloop.Options{Model: "test-model", MaxModelCallsPerTurn: 4}, nil)

	cfg := Config{
		PingInterval:    time.Minute,
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 64 << 10,
		IdleTimeout:     time.Minute,
		TurnTimeout:     time.Minute,
		Streaming:       true,
		WelcomeGreeting: "Hello! Press one for Spanish.",
		SystemPrompt:    "be brief",
		SwitchDigit:     "1",
	}
	for _, override := range overrides {
		override(&cfg)
	}
	deps := Deps{Registry: registry, Runner: runner, Languages: languages.Default(), Tracker: tracker}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = New(conn, cfg, deps).Serve(r.Context())
	}))
	t.Cleanup(srv.Close)

	h := &testHarness{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		registry: registry,
		tracker:  tracker,
		store:    store,
	}
	h.client = h.dial(t)
	return h
}

func (h *testHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *testHarness) sendJSON(t *testing.T, v any) {
	sendJSONOn(t, h.client, v)
}

func sendJSONOn(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func (h *testHarness) readFrame(t *testing.T) map[string]any {
	return readFrameOn(t, h.client)
}

func readFrameOn(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("parse frame %s: %v", data, err)
	}
	return frame
}

// expectNoFrame asserts nothing arrives within the window.
func expectNoFrame(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(window))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame %s", data)
	}
}

func setupFrame(callSID string) map[string]any {
	return map[string]any{"type": "setup", "callSid": callSID, "from": "+15550001111"}
}

func TestSetupSendsWelcomeGreeting(t *testing.T) {
	h := newHarness(t, &streamProvider{})

	h.sendJSON(t, setupFrame("CA100"))

	frame := h.readFrame(t)
	if frame["type"] != "text" || frame["token"] != "Hello! Press one for Spanish." || frame["last"] != true {
		t.Fatalf("frame = %v", frame)
	}
}

func TestFrameBeforeSetupIsRejected(t *testing.T) {
	h := newHarness(t, &streamProvider{})

	h.sendJSON(t, map[string]any{"type": "prompt", "voicePrompt": "hello"})

	frame := h.readFrame(t)
	if frame["type"] != "error" || frame["message"] != "session not initialized" {
		t.Fatalf("frame = %v", frame)
	}
}

func TestKeypadLanguageSwitch(t *testing.T) {
	h := newHarness(t, &streamProvider{})

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	h.sendJSON(t, map[string]any{"type": "dtmf", "digit": "1"})

	frame := h.readFrame(t)
	if frame["type"] != "language" {
		t.Fatalf("frame = %v", frame)
	}
	if frame["ttsLanguage"] != "es-US" || frame["transcriptionLanguage"] != "es-US" {
		t.Fatalf("frame = %v", frame)
	}
}

func TestKeypadInvalidLanguageSelection(t *testing.T) {
	h := newHarness(t, &streamProvider{})

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	h.sendJSON(t, map[string]any{"type": "dtmf", "digit": "7"})

	frame := h.readFrame(t)
	if frame["type"] != "text" || frame["token"] != "Invalid input for language selection." {
		t.Fatalf("frame = %v", frame)
	}
}

func TestPromptStreamsTokens(t *testing.T) {
	provider := &streamProvider{scripts: [][]*types.Chunk{{
		{Token: "Hel"},
		{Token: "lo "},
		{Token: "world", Finish: types.FinishStop},
	}}}
	h := newHarness(t, provider)

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	h.sendJSON(t, map[string]any{"type": "prompt", "voicePrompt": "say hello"})

	var tokens []string
	for i := 0; i < 3; i++ {
		frame := h.readFrame(t)
		if frame["type"] != "text" {
			t.Fatalf("frame = %v", frame)
		}
		if frame["last"] != false {
			t.Fatalf("streamed frame carried last=true: %v", frame)
		}
		tokens = append(tokens, frame["token"].(string))
	}
	if got := strings.Join(tokens, ""); got != "Hello world" {
		t.Fatalf("streamed text = %q", got)
	}
}

func TestDisconnectKeepsSessionForGracePeriod(t *testing.T) {
	h := newHarness(t, &streamProvider{})

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	h.client.Close()

	// Release persists a snapshot; its appearance in the store marks settle.
	ctx := context.Background()
	deadline := time.After(2 * time.Second)
	for {
		if _, err := h.store.Restore(ctx, "CA100"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no snapshot persisted after disconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if h.registry.Len() != 1 {
		t.Fatalf("registry holds %d sessions, want 1 pending grace", h.registry.Len())
	}
}

func TestResumeWithinGraceHandsSessionBackUntouched(t *testing.T) {
	provider := &streamProvider{}
	h := newHarness(t, provider)

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome
	h.client.Close()

	ctx := context.Background()
	deadline := time.After(2 * time.Second)
	for {
		if _, err := h.store.Restore(ctx, "CA100"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no snapshot persisted after disconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Reconnect within the grace period: no greeting replay, no synthetic
	// turn, the live object comes back as-is.
	reconnect := h.dial(t)
	sendJSONOn(t, reconnect, setupFrame("CA100"))
	expectNoFrame(t, reconnect, 300*time.Millisecond)

	if req := provider.lastRequest(); req != nil {
		t.Fatalf("model was called on resume: %+v", req.Messages)
	}
}

func TestRestoreFromSnapshotRunsReconnectTurn(t *testing.T) {
	provider := &streamProvider{scripts: [][]*types.Chunk{{
		{Token: "Welcome back", Finish: types.FinishStop},
	}}}
	h := newHarness(t, provider)

	seeded := []types.Message{
		types.SystemMessage("be brief"),
		types.UserMessage("what is my balance"),
		types.AssistantMessage("One moment."),
	}
	if err := h.store.Save(context.Background(), "CA300", seeded); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	h.sendJSON(t, setupFrame("CA300"))

	frame := h.readFrame(t)
	if frame["type"] != "text" || frame["token"] != "Welcome back" || frame["last"] != false {
		t.Fatalf("frame = %v", frame)
	}

	req := provider.lastRequest()
	if req == nil {
		t.Fatalf("no model request on restore")
	}
	if len(req.Messages) != len(seeded)+1 {
		t.Fatalf("request carried %d messages, want %d", len(req.Messages), len(seeded)+1)
	}
	notice := req.Messages[len(req.Messages)-1]
	if notice.Role != types.RoleSystem || !strings.Contains(notice.Content, "reconnected") {
		t.Fatalf("last request message = %+v", notice)
	}
}

func TestSecondSetupDisplacesLiveConnection(t *testing.T) {
	provider := &streamProvider{scripts: [][]*types.Chunk{{
		{Token: "ok", Finish: types.FinishStop},
	}}}
	h := newHarness(t, provider)

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	takeover := h.dial(t)
	sendJSONOn(t, takeover, setupFrame("CA100"))

	// Ownership moved: the first connection is cancelled by the takeover.
	h.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := h.client.ReadMessage(); err == nil {
		t.Fatalf("displaced connection still readable")
	}

	// The takeover owns the conversation and can run turns.
	sendJSONOn(t, takeover, map[string]any{"type": "prompt", "voicePrompt": "still there?"})
	frame := readFrameOn(t, takeover)
	if frame["type"] != "text" || frame["token"] != "ok" {
		t.Fatalf("frame = %v", frame)
	}

	if h.registry.Len() != 1 {
		t.Fatalf("registry holds %d sessions, want 1", h.registry.Len())
	}
}

func TestTurnTimeoutFailsTurn(t *testing.T) {
	h := newHarness(t, blockingProvider{}, func(cfg *Config) {
		cfg.TurnTimeout = 50 * time.Millisecond
	})

	h.sendJSON(t, setupFrame("CA100"))
	h.readFrame(t) // welcome

	h.sendJSON(t, map[string]any{"type": "prompt", "voicePrompt": "hello"})

	frame := h.readFrame(t)
	if frame["type"] != "error" || frame["message"] != "agent failed to respond" {
		t.Fatalf("frame = %v", frame)
	}
}
