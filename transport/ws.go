package transport

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSStream is a StreamHandle over a WebSocket connection. Unlike SSE, the
// socket is duplex on its own: the read loop feeds posted frames straight
// into the bridge, so no separate message-post endpoint is involved.
type WSStream struct {
	id   string
	conn *websocket.Conn

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// NewWSStream wraps an upgraded WebSocket connection.
func NewWSStream(conn *websocket.Conn) *WSStream {
	return &WSStream{
		id:     uuid.New().String(),
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// ID identifies this connection.
func (s *WSStream) ID() string {
	return s.id
}

// Send writes one event as a text frame. Only the payload travels on the
// wire; WebSocket peers do not need the SSE event-name framing.
func (s *WSStream) Send(event Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, event.Data); err != nil {
		s.markClosed()
		return err
	}
	return nil
}

// ReadLoop reads frames from the peer and hands them to deliver until the
// connection drops. Blocks; run it from the connection's handler.
func (s *WSStream) ReadLoop(deliver func([]byte) error) {
	defer s.markClosed()
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := deliver(data); err != nil {
			return
		}
	}
}

// Close closes the underlying connection. Idempotent.
func (s *WSStream) Close() error {
	s.markClosed()
	return s.conn.Close()
}

func (s *WSStream) markClosed() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Done is closed once the connection is unusable.
func (s *WSStream) Done() <-chan struct{} {
	return s.closed
}
