package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/voicerelay/voicerelay/pkg/gateway/config"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config   config.Config
	Registry *sessions.Registry
	Tracker  *sessions.Tracker
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		Provider     string   `json:"provider"`
		Model        string   `json:"model"`
		Streaming    bool     `json:"streaming"`
		Connections  int      `json:"connections"`
		LiveSessions int      `json:"live_sessions"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	switch h.Config.LLMProvider {
	case config.ProviderOpenAI:
		if h.Config.OpenAIAPIKey == "" {
			issues = append(issues, "provider=openai but no api key configured")
		}
	case config.ProviderGemini:
		if h.Config.GeminiAPIKey == "" {
			issues = append(issues, "provider=gemini but no api key configured")
		}
	default:
		issues = append(issues, "invalid llm provider")
	}

	if h.Config.PingInterval <= 0 || h.Config.WriteTimeout <= 0 {
		issues = append(issues, "websocket timeouts must be > 0")
	}
	if h.Config.MaxMessageBytes <= 0 {
		issues = append(issues, "max_message_bytes must be > 0")
	}
	if h.Config.IdleTimeout <= 0 {
		issues = append(issues, "idle_timeout must be > 0")
	}
	if h.Config.GracePeriod <= 0 {
		issues = append(issues, "grace_period must be > 0")
	}
	if h.Config.SnapshotExpiry <= 0 {
		issues = append(issues, "snapshot_expiry must be > 0")
	}
	if h.Config.MaxModelCallsPerTurn <= 0 {
		issues = append(issues, "max_model_calls_per_turn must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := readyResp{
		OK:        ok,
		Provider:  h.Config.LLMProvider,
		Model:     h.Config.Model,
		Streaming: h.Config.Streaming,
		Issues:    issues,
	}
	if h.Tracker != nil {
		resp.Connections = h.Tracker.Count()
	}
	if h.Registry != nil {
		resp.LiveSessions = h.Registry.Len()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
