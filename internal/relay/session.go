package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	errSessionClosed  = errors.New("session closed")
	errSendBufferFull = errors.New("session send buffer full")
)

// wsSession is one live websocket connection. Sends go through a buffered
// channel drained by writePump so concurrent callers never block on a slow
// client; a client that cannot keep up loses the event rather than stalling
// the relay.
type wsSession struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(id string, conn *websocket.Conn, sendBuffer int) *wsSession {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &wsSession{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// ID implements presence.Session.
func (s *wsSession) ID() string { return s.id }

// Send implements presence.Session. Non-blocking.
func (s *wsSession) Send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(protocol.Envelope{Type: event, Payload: data})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	_ = s.conn.Close()
}

// readPump reads frames until the connection dies and dispatches each one
// through the handler. It returns when the connection is gone; the caller
// runs the disconnect path exactly once after that.
func (s *wsSession) readPump(readLimit int64, handler *Handler) {
	if readLimit > 0 {
		s.conn.SetReadLimit(readLimit)
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Debugf("session %s: dropping malformed frame: %v", s.id, err)
			continue
		}
		handler.HandleEvent(s, env)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
