// Package server wires the HTTP surface: the relay websocket endpoint and
// the health probes, wrapped in the shared middleware chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/voicerelay/voicerelay/pkg/gateway/config"
	"github.com/voicerelay/voicerelay/pkg/gateway/handlers"
	"github.com/voicerelay/voicerelay/pkg/gateway/mw"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/session"
	"github.com/voicerelay/voicerelay/pkg/gateway/relay/sessions"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	registry *sessions.Registry
	tracker  *sessions.Tracker
}

func New(cfg config.Config, sessionCfg session.Config, deps session.Deps, tracker *sessions.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: deps.Registry,
		tracker:  tracker,
	}

	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Config:   cfg,
		Registry: s.registry,
		Tracker:  tracker,
	})
	deps.Tracker = tracker
	s.mux.Handle("/relay", handlers.RelayHandler{
		SessionConfig: sessionCfg,
		SessionDeps:   deps,
		Logger:        logger,
	})

	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
