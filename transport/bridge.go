// Package transport couples one open outbound event stream with an
// inbound message channel, presenting a single logical duplex conduit to
// the protocol layer.
package transport

import (
	"encoding/json"
	"sync"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/internal/logger"
	"go.uber.org/zap"
)

// Event is a single outbound protocol event.
type Event struct {
	Name string
	Data json.RawMessage
}

// StreamHandle is one attached outbound stream. Implementations must be
// safe for concurrent Send calls.
type StreamHandle interface {
	// ID identifies this connection for logging.
	ID() string
	// Send writes one event to the peer.
	Send(event Event) error
	// Close releases the stream. Idempotent.
	Close() error
	// Done is closed once the stream is no longer usable.
	Done() <-chan struct{}
}

// Bridge is the duplex transport bridge. At most one stream is attached
// at a time; attaching while attached is a reconnect and replaces the old
// handle. Inbound messages are queued FIFO for the protocol loop.
type Bridge struct {
	mu      sync.Mutex
	stream  StreamHandle
	inbound chan json.RawMessage
}

// NewBridge creates a bridge with the given inbound queue capacity.
func NewBridge(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bridge{
		inbound: make(chan json.RawMessage, buffer),
	}
}

// AttachStream binds the outbound side. An already-attached stream is
// closed and replaced; posted messages queued before the reconnect stay
// in order.
func (b *Bridge) AttachStream(h StreamHandle) {
	b.mu.Lock()
	old := b.stream
	b.stream = h
	b.mu.Unlock()

	if old != nil && old != h {
		logger.Debug("Replacing attached stream",
			zap.String("old_stream", old.ID()),
			zap.String("new_stream", h.ID()))
		_ = old.Close()
	}
}

// Detach clears the attached stream, but only if h is still the current
// one. A stale handle detaching after a reconnect must not clobber the
// replacement.
func (b *Bridge) Detach(h StreamHandle) {
	b.mu.Lock()
	if b.stream == h {
		b.stream = nil
	}
	b.mu.Unlock()
	_ = h.Close()
}

// Attached reports whether a stream is currently attached.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stream != nil
}

// DeliverInbound enqueues a posted message for the protocol loop, in
// arrival order. Fails with TransportNotReady when no stream is attached:
// posts without an open stream are rejected, not buffered.
func (b *Bridge) DeliverInbound(message json.RawMessage) error {
	b.mu.Lock()
	attached := b.stream != nil
	b.mu.Unlock()

	if !attached {
		return errors.TransportNotReady("deliver message")
	}

	select {
	case b.inbound <- message:
		return nil
	default:
		return errors.New(errors.ErrCodeTransportNotReady, "inbound queue is full")
	}
}

// Inbound returns the FIFO channel the protocol loop consumes.
func (b *Bridge) Inbound() <-chan json.RawMessage {
	return b.inbound
}

// SendOutbound writes an event to the attached stream. When the peer has
// closed the stream the bridge transitions to detached and reports
// StreamClosed; the failure never propagates as a panic into the actor.
func (b *Bridge) SendOutbound(event Event) error {
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()

	if stream == nil {
		return errors.StreamClosed()
	}

	if err := stream.Send(event); err != nil {
		b.Detach(stream)
		return errors.Wrap(err, errors.ErrCodeStreamClosed, "stream write failed")
	}
	return nil
}

// Close detaches and closes any attached stream.
func (b *Bridge) Close() {
	b.mu.Lock()
	stream := b.stream
	b.stream = nil
	b.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
}
