package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/walletfeed/wallet-feed/internal/domain"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// watchEvent tells a connected client that state it watches has changed.
// The client recomputes from the latest snapshot; events carry no deltas.
type watchEvent struct {
	Kind string `json:"kind"` // "messages" or "links"
	Key  string `json:"key"`
}

// handleWatch upgrades the connection and pushes one event per distinct
// store change involving the watched key. An empty key watches every
// message. Watch registrations are torn down when the connection closes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key != "" && !domain.IsValidKey(key) {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "key must be a 40-hex wallet address")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	watchConnections.Inc()
	defer watchConnections.Dec()

	// Buffered so notifier callbacks never block the store path. A full
	// buffer drops the event; the client recomputes on the next one.
	events := make(chan watchEvent, 16)
	notify := func(kind string) func() {
		return func() {
			select {
			case events <- watchEvent{Kind: kind, Key: key}:
			default:
			}
		}
	}

	cancelMessages := s.feed.WatchMessages(key, notify("messages"))
	defer cancelMessages()
	if key != "" {
		cancelLinks := s.feed.WatchLinks(key, notify("links"))
		defer cancelLinks()
	}

	s.logger.Info("watch connected", "key", domain.ShortKey(key), "remote", r.RemoteAddr)

	// Reader drains the connection to detect close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Warn("watch write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
