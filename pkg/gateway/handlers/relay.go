package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicerelay/voicerelay/pkg/gateway/relay/session"
)

// RelayHandler upgrades the voice relay websocket and hands the
// connection to a session loop. Connection tracking lives in the session,
// which re-keys itself once the setup frame names the call.
type RelayHandler struct {
	SessionConfig session.Config
	SessionDeps   session.Deps
	Logger        *slog.Logger
}

func (h RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// The relay connects server to server; there is no browser origin
		// to check.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	h.Logger.Info("relay connected", "conn", connID, "remote", r.RemoteAddr)
	err = session.New(conn, h.SessionConfig, h.SessionDeps).Serve(r.Context())
	h.Logger.Info("relay disconnected", "conn", connID, "error", err)
}
