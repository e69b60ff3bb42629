package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// handleSubscribe upgrades to a websocket and writes one JSON text
// message per event until the client goes away or the bus closes.
//
// The subscription is registered before the upgrade completes, so every
// event published after the client's handshake returns is delivered.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.svc.Subscribe(ctx, topic)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("problem initiating websocket", "topic", topic, "error", err)
		return
	}
	defer conn.Close()

	logger := s.logger.With("topic", topic, "subscription", sub.ID())
	logger.Debug("stream opened")

	// The client never sends data; reading detects its close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range sub.Events() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("stream write failed", "error", err)
			return
		}
	}

	// Events closed: either the client left or the bus shut down.
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	logger.Debug("stream closed")
}
