package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"examsight/internal/logging"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to loopback; cross-origin checks add nothing.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	wsWriteTimeout    = 5 * time.Second
	wsSubscribeBuffer = 32
)

// serveWS bridges a hub subscription onto a WebSocket connection. The
// optional ?stream= query restricts the feed to one stream.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotImplemented, "broadcast disabled")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	stream := r.URL.Query().Get("stream")
	sub := s.hub.Subscribe(stream, wsSubscribeBuffer)
	defer s.hub.Unsubscribe(sub)
	defer conn.Close()

	// Reader goroutine: we ignore client messages but need to observe
	// close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
