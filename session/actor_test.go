package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/protocol"
	"github.com/memgate/memgate/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	identityA = "abc12345678901234567"
	identityB = "xyz98765432109876543"
)

// memStore is an in-memory session Store that counts writes.
type memStore struct {
	mu       sync.Mutex
	contexts map[string]*Context
	saves    int
}

func newMemStore() *memStore {
	return &memStore{contexts: make(map[string]*Context)}
}

func (s *memStore) Load(locator string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.contexts[locator]; ok {
		cp := *sc
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) Save(locator string, sc *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sc
	s.contexts[locator] = &cp
	s.saves++
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// echoFactory builds a protocol server with a single echo tool.
func echoFactory(id string) (*protocol.Server, error) {
	registry := protocol.NewRegistry()
	if err := registry.RegisterTool(&protocol.Tool{
		Name:        "echo",
		Description: "echoes input",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return text, nil
		},
	}); err != nil {
		return nil, err
	}
	return protocol.NewServer(registry, protocol.ServerInfo{Name: "test", Version: "0"}), nil
}

// testStream is a minimal StreamHandle for actor tests.
type testStream struct {
	id     string
	mu     sync.Mutex
	events []transport.Event
	notify chan struct{}
	closed bool
	done   chan struct{}
}

func newTestStream(id string) *testStream {
	return &testStream{id: id, notify: make(chan struct{}, 16), done: make(chan struct{})}
}

func (s *testStream) ID() string { return s.id }

func (s *testStream) Send(event transport.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	s.notify <- struct{}{}
	return nil
}

func (s *testStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *testStream) Done() <-chan struct{} { return s.done }

func (s *testStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *testStream) waitEvents(t *testing.T, n int) []transport.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		if len(s.events) >= n {
			out := append([]transport.Event(nil), s.events...)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		select {
		case <-s.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events", n)
		}
	}
}

func newTestActor(t *testing.T, store Store) *Actor {
	t.Helper()
	a := newActor("session:"+identityA, Deps{
		Store:         store,
		NewProtocol:   echoFactory,
		InboundBuffer: 8,
	})
	t.Cleanup(a.Close)
	return a
}

func TestFirstRequestBindsAndPersists(t *testing.T) {
	store := newMemStore()
	a := newTestActor(t, store)

	require.NoError(t, a.HandleStreamOpen(identityA, newTestStream("s1")))

	sc := a.Context()
	require.NotNil(t, sc)
	assert.Equal(t, identityA, sc.Identity)
	assert.False(t, sc.CreatedAt.IsZero())

	persisted, err := store.Load("session:" + identityA)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, identityA, persisted.Identity)
}

func TestBoundActorRejectsOtherIdentity(t *testing.T) {
	store := newMemStore()
	a := newTestActor(t, store)

	require.NoError(t, a.HandleStreamOpen(identityA, newTestStream("s1")))
	savesBefore := store.saveCount()
	before := a.Context()

	err := a.HandleMessagePost(identityB, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAuthorizationViolation))

	// No state change: neither persisted nor in-memory.
	assert.Equal(t, savesBefore, store.saveCount())
	after := a.Context()
	assert.Equal(t, before.Identity, after.Identity)
	assert.Equal(t, before.LastAccessedAt, after.LastAccessedAt)

	// Stream open asserting the other identity is rejected the same way.
	err = a.HandleStreamOpen(identityB, newTestStream("s2"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAuthorizationViolation))
}

func TestRehydratedActorEnforcesPersistedBinding(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save("session:"+identityA, &Context{
		Identity:       identityA,
		CreatedAt:      time.Now().Add(-time.Hour),
		LastAccessedAt: time.Now().Add(-time.Hour),
	}))

	// Fresh instance, as after an eviction and reload.
	a := newTestActor(t, store)

	err := a.HandleMessagePost(identityB, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAuthorizationViolation))

	require.NoError(t, a.HandleStreamOpen(identityA, newTestStream("s1")))
	sc := a.Context()
	assert.True(t, sc.CreatedAt.Before(sc.LastAccessedAt), "reload keeps CreatedAt, refreshes LastAccessedAt")
}

func TestActorRevalidatesIdentityFormat(t *testing.T) {
	a := newTestActor(t, newMemStore())

	err := a.HandleMessagePost("bad id!", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedIdentity))
}

func TestMessagePostBeforeStreamOpen(t *testing.T) {
	a := newTestActor(t, newMemStore())

	err := a.HandleMessagePost(identityA, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTransportNotReady))
}

func TestStreamOpenThenPostRoundTrip(t *testing.T) {
	a := newTestActor(t, newMemStore())
	stream := newTestStream("s1")

	require.NoError(t, a.HandleStreamOpen(identityA, stream))
	require.NoError(t, a.HandleMessagePost(identityA, json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)))

	events := stream.waitEvents(t, 1)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(events[0].Data, &resp))
	assert.Nil(t, resp.Error)
}

func TestMessagePostOrdering(t *testing.T) {
	a := newTestActor(t, newMemStore())
	stream := newTestStream("s1")
	require.NoError(t, a.HandleStreamOpen(identityA, stream))

	for i := 1; i <= 3; i++ {
		msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"echo","arguments":{"text":"m%d"}}}`, i, i)
		require.NoError(t, a.HandleMessagePost(identityA, json.RawMessage(msg)))
	}

	events := stream.waitEvents(t, 3)
	for i, ev := range events {
		var resp protocol.Response
		require.NoError(t, json.Unmarshal(ev.Data, &resp))
		assert.Equal(t, fmt.Sprintf("%d", i+1), string(resp.ID), "responses must arrive in post order")
	}
}

func TestStreamReattachIsIdempotent(t *testing.T) {
	a := newTestActor(t, newMemStore())
	first := newTestStream("first")
	second := newTestStream("second")

	require.NoError(t, a.HandleStreamOpen(identityA, first))
	require.NoError(t, a.HandleStreamOpen(identityA, second))

	assert.True(t, first.isClosed(), "old stream must be closed on reattach")

	require.NoError(t, a.HandleMessagePost(identityA, json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	second.waitEvents(t, 1)
	first.mu.Lock()
	firstEvents := len(first.events)
	first.mu.Unlock()
	assert.Zero(t, firstEvents, "no events may be emitted to the replaced stream")
}

func TestDetachThenPostFails(t *testing.T) {
	a := newTestActor(t, newMemStore())
	stream := newTestStream("s1")
	require.NoError(t, a.HandleStreamOpen(identityA, stream))

	a.DetachStream(stream)

	err := a.HandleMessagePost(identityA, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTransportNotReady))

	// A future reattach recovers.
	require.NoError(t, a.HandleStreamOpen(identityA, newTestStream("s2")))
	require.NoError(t, a.HandleMessagePost(identityA, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"ping"}`)))
}
