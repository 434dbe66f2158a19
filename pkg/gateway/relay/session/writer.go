package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

var errWriterClosed = errors.New("session writer closed")

// writer serializes all outbound websocket traffic onto one goroutine.
// gorilla/websocket permits a single concurrent writer, so every frame
// funnels through the outbound channel.
type writer struct {
	conn         *websocket.Conn
	outbound     chan []byte
	pingInterval time.Duration
	writeTimeout time.Duration
	done         chan struct{}
}

func newWriter(conn *websocket.Conn, pingInterval, writeTimeout time.Duration) *writer {
	return &writer{
		conn:         conn,
		outbound:     make(chan []byte, 32),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// send queues one frame. It fails once the pump has exited so callers do
// not block against a dead connection.
func (w *writer) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode outbound frame: %w", err)
	}
	select {
	case w.outbound <- data:
		return nil
	case <-w.done:
		return errWriterClosed
	}
}

// run pumps queued frames and keepalive pings until ctx is cancelled, then
// attempts a clean close handshake. Any write error ends the pump; the
// read side notices the broken connection on its own.
func (w *writer) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-w.outbound:
			w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			w.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
