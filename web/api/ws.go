package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsHandler streams the same events as /api/events over a WebSocket. Client
// messages are ignored; the connection only carries server pushes.
func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initial, err := s.currentEvent(r.Context())
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		client, ok := s.hub.subscribe(r.Context())
		if !ok {
			return
		}
		defer s.hub.unsubscribe(client)

		// Reader: needed to process control frames and notice the close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := writeWS(conn, initial); err != nil {
			return
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-closed:
				return
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case event, ok := <-client:
				if !ok {
					conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
						time.Now().Add(time.Second))
					return
				}
				if err := writeWS(conn, event); err != nil {
					s.logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	}
}

func writeWS(conn *websocket.Conn, event SSEEvent) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
