package transport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SSEStream is a StreamHandle over a server-sent events response. One
// logical connection per opened session; the handler goroutine keeps the
// response open until the peer disconnects or the stream is closed.
// Response headers are written on the first Send, so a request that fails
// binding can still receive an ordinary error status.
type SSEStream struct {
	id      string
	w       http.ResponseWriter
	flusher http.Flusher

	mu          sync.Mutex
	headersSent bool
	closed      chan struct{}
	closeOnce   sync.Once
}

// NewSSEStream wraps w as an SSE stream. Fails when the writer cannot
// flush incrementally.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	return &SSEStream{
		id:      uuid.New().String(),
		w:       w,
		flusher: flusher,
		closed:  make(chan struct{}),
	}, nil
}

// ID identifies this connection.
func (s *SSEStream) ID() string {
	return s.id
}

// Send writes one event in SSE framing and flushes it to the peer.
func (s *SSEStream) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return fmt.Errorf("stream %s is closed", s.id)
	default:
	}

	if !s.headersSent {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.headersSent = true
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Name, event.Data); err != nil {
		s.closeLocked()
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close marks the stream closed. Idempotent.
func (s *SSEStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *SSEStream) closeLocked() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Done is closed once the stream is unusable.
func (s *SSEStream) Done() <-chan struct{} {
	return s.closed
}
