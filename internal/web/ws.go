package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"race-telemetry-dashboard/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleWebsocket streams the session's view: the current one right away,
// then one after every change.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", log.ErrorField(err))
		return
	}
	defer c.Close()

	views := ctrl.Subscribe()
	defer ctrl.Unsubscribe(views)

	// the reader only handles control frames and notices the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		c.SetReadDeadline(time.Now().Add(pongWait))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(v any) bool {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(v); err != nil {
			s.log.Debug("websocket write failed", log.ErrorField(err))
			return false
		}
		return true
	}

	if !write(ctrl.View()) {
		return
	}
	for {
		select {
		case v, ok := <-views:
			if !ok {
				c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if !write(v) {
				return
			}
		case <-ping.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
