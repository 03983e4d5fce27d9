package transport

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/memgate/memgate/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream records sent events and can be forced to fail.
type fakeStream struct {
	id     string
	sent   []Event
	fail   bool
	closed bool
	done   chan struct{}
}

func newFakeStream(id string) *fakeStream {
	return &fakeStream{id: id, done: make(chan struct{})}
}

func (f *fakeStream) ID() string { return f.id }

func (f *fakeStream) Send(event Event) error {
	if f.fail {
		return fmt.Errorf("peer gone")
	}
	f.sent = append(f.sent, event)
	return nil
}

func (f *fakeStream) Close() error {
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeStream) Done() <-chan struct{} { return f.done }

func TestDeliverInboundRequiresStream(t *testing.T) {
	b := NewBridge(4)

	err := b.DeliverInbound(json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTransportNotReady))
}

func TestDeliverInboundFIFO(t *testing.T) {
	b := NewBridge(4)
	b.AttachStream(newFakeStream("s1"))

	for i := 1; i <= 3; i++ {
		msg := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
		require.NoError(t, b.DeliverInbound(msg))
	}

	for i := 1; i <= 3; i++ {
		got := <-b.Inbound()
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(got))
	}
}

func TestAttachReplacesExistingStream(t *testing.T) {
	b := NewBridge(4)
	first := newFakeStream("first")
	second := newFakeStream("second")

	b.AttachStream(first)
	b.AttachStream(second)

	assert.True(t, first.closed, "old stream must be closed on reconnect")
	assert.False(t, second.closed)

	require.NoError(t, b.SendOutbound(Event{Name: "message", Data: json.RawMessage(`{}`)}))
	assert.Empty(t, first.sent, "no events may leak to the replaced stream")
	assert.Len(t, second.sent, 1)
}

func TestSendOutboundWithoutStream(t *testing.T) {
	b := NewBridge(4)

	err := b.SendOutbound(Event{Name: "message", Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStreamClosed))
}

func TestSendOutboundDetachesOnWriteFailure(t *testing.T) {
	b := NewBridge(4)
	s := newFakeStream("s1")
	b.AttachStream(s)
	s.fail = true

	err := b.SendOutbound(Event{Name: "message", Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStreamClosed))
	assert.False(t, b.Attached(), "bridge must detach after a failed write")

	// A future reattach recovers the bridge.
	b.AttachStream(newFakeStream("s2"))
	assert.True(t, b.Attached())
	require.NoError(t, b.SendOutbound(Event{Name: "message", Data: json.RawMessage(`{}`)}))
}

func TestStaleDetachDoesNotClobberReplacement(t *testing.T) {
	b := NewBridge(4)
	first := newFakeStream("first")
	second := newFakeStream("second")

	b.AttachStream(first)
	b.AttachStream(second)
	b.Detach(first)

	assert.True(t, b.Attached(), "detaching a replaced handle must not drop the current stream")
}
