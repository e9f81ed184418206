package web

import (
	"net/http"
	"time"

	"github.com/AlouiLouai/takwira/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

type feedMessage struct {
	Type string `json:"type"`
}

// handlePlayersFeed subscribes, upgrades to a websocket and sends one change
// frame per coalesced notification. Clients only read; anything they send is discarded.
func (s *Server) handlePlayersFeed(w http.ResponseWriter, r *http.Request) {
	changes := make(chan struct{}, 1)
	sub, err := s.gateway.Subscribe(r.Context(), func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		logging.Error(s.logger, "feed subscribe failed", err)
		writeError(w, http.StatusServiceUnavailable, "change feed unavailable")
		return
	}
	defer sub.Unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(s.logger, "feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.rec.FeedClientOpened()
	defer s.rec.FeedClientClosed()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(feedMessage{Type: "change"}); err != nil {
				return
			}
		}
	}
}
