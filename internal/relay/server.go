package relay

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"whisper-relay/internal/config"
	"whisper-relay/internal/crash"
	"whisper-relay/internal/logger"
	"whisper-relay/internal/presence"
)

// Server upgrades HTTP requests to websocket sessions and runs their
// read/write pumps. Every session subscribes to presence broadcasts for
// its whole lifetime; identity is only attached later by announce-online.
type Server struct {
	handler     *Handler
	broadcaster *presence.Broadcaster
	upgrader    websocket.Upgrader

	sendBuffer int
	readLimit  int64
}

// NewServer creates the websocket endpoint.
func NewServer(handler *Handler, broadcaster *presence.Broadcaster, cfg config.RelayConfig) *Server {
	return &Server{
		handler:     handler,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Clients are native apps, not browsers; origin checks
				// would only reject the ones that bother to set one.
				return true
			},
		},
		sendBuffer: cfg.SessionSendBuffer,
		readLimit:  cfg.SessionReadLimit,
	}
}

// ServeHTTP implements http.Handler for the websocket path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warningf("websocket upgrade failed: %v", err)
		return
	}

	sess := newSession(uuid.NewString(), conn, s.sendBuffer)
	logger.Infof("session %s connected from %s", sess.ID(), r.RemoteAddr)

	s.broadcaster.Subscribe(sess)

	crash.SafeGoroutine("session-write", sess.writePump)
	crash.SafeGoroutine("session-read", func() {
		sess.readPump(s.readLimit, s.handler)

		// readPump returning is the single disconnect signal, so the
		// teardown below runs exactly once per session.
		s.handler.HandleDisconnect(sess)
		sess.close()
		logger.Infof("session %s disconnected", sess.ID())
	})
}
