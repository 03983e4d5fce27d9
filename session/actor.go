package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/identity"
	"github.com/memgate/memgate/internal/logger"
	"github.com/memgate/memgate/protocol"
	"github.com/memgate/memgate/transport"
	"go.uber.org/zap"
)

// ProtocolFactory builds the identity-scoped protocol server for an actor.
// The identity is fixed at construction time, so tool handlers can never
// address another identity's data.
type ProtocolFactory func(id string) (*protocol.Server, error)

// Deps are the collaborators an actor needs.
type Deps struct {
	Store         Store
	NewProtocol   ProtocolFactory
	InboundBuffer int
}

// Actor is the durable, single-identity session unit. All request
// handling for one locator is serialized by the actor's mutex; the
// manager guarantees one actor instance per locator, so requests for the
// same identity are never interleaved within this instance's state.
//
// Lifecycle: Uninitialized until the first valid request binds (or
// reloads) the session context; Bound afterwards; the transport bridge is
// created lazily on the first stream open and lives for the in-memory
// lifetime of the instance.
type Actor struct {
	locator string
	deps    Deps
	log     *logger.FieldLogger

	mu     sync.Mutex
	sc     *Context
	bridge *transport.Bridge
	cancel context.CancelFunc
}

func newActor(locator string, deps Deps) *Actor {
	return &Actor{
		locator: locator,
		deps:    deps,
		log:     logger.Session(locator),
	}
}

// bindLocked enforces the identity-binding invariant. On the first
// request it loads or creates the persisted session context; afterwards
// any request asserting a different identity is rejected with
// AuthorizationViolation and no state change. Caller holds a.mu.
func (a *Actor) bindLocked(id string) error {
	// Re-validate even though the router already did: the two checks run
	// at different trust boundaries.
	if !identity.IsValid(id) {
		return errors.MalformedIdentity(id)
	}

	now := time.Now().UTC()

	if a.sc == nil {
		sc, err := a.deps.Store.Load(a.locator)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSessionLoad, "failed to load session context")
		}
		if sc == nil {
			sc = &Context{Identity: id, CreatedAt: now, LastAccessedAt: now}
			if err := a.deps.Store.Save(a.locator, sc); err != nil {
				return errors.Wrap(err, errors.ErrCodeSessionSave, "failed to persist session context")
			}
			a.sc = sc
			a.log.Info("Session bound")
			return nil
		}
		a.sc = sc
	}

	if a.sc.Identity != id {
		// Confirm the mismatch, nothing else; the bound identity is not
		// disclosed to the caller.
		a.log.Warn("Identity mismatch on bound session")
		return errors.AuthorizationViolation()
	}

	a.sc.LastAccessedAt = now
	if err := a.deps.Store.Save(a.locator, a.sc); err != nil {
		return errors.Wrap(err, errors.ErrCodeSessionSave, "failed to persist session context")
	}
	return nil
}

// HandleStreamOpen binds the identity, lazily creates the transport
// bridge and protocol loop, and attaches the stream. Re-opening a stream
// on a live instance replaces the previous attachment rather than
// creating a second bridge. The caller keeps the connection open and must
// call DetachStream when the peer disconnects.
func (a *Actor) HandleStreamOpen(id string, h transport.StreamHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.bindLocked(id); err != nil {
		return err
	}

	if a.bridge == nil {
		srv, err := a.deps.NewProtocol(id)
		if err != nil {
			return errors.Internal(err)
		}
		a.bridge = transport.NewBridge(a.deps.InboundBuffer)

		runCtx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		go srv.Run(runCtx, a.bridge)
		a.log.Info("Transport bridge created")
	}

	a.bridge.AttachStream(h)
	a.log.Debug("Stream attached", zap.String("stream", h.ID()))
	return nil
}

// DetachStream releases the stream if it is still the attached one.
func (a *Actor) DetachStream(h transport.StreamHandle) {
	a.mu.Lock()
	bridge := a.bridge
	a.mu.Unlock()

	if bridge != nil {
		bridge.Detach(h)
		a.log.Debug("Stream detached", zap.String("stream", h.ID()))
	}
}

// HandleMessagePost binds the identity and routes the posted message into
// the bridge. Fails with TransportNotReady when no stream has been opened
// on this instance; posts are rejected, not buffered. Delivery is
// fire-and-forget: the protocol-level response arrives over the stream.
func (a *Actor) HandleMessagePost(id string, message json.RawMessage) error {
	a.mu.Lock()
	if err := a.bindLocked(id); err != nil {
		a.mu.Unlock()
		return err
	}
	bridge := a.bridge
	a.mu.Unlock()

	if bridge == nil {
		return errors.TransportNotReady("post a message")
	}
	return bridge.DeliverInbound(message)
}

// Context returns a copy of the bound session context, or nil while the
// actor is uninitialized.
func (a *Actor) Context() *Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sc == nil {
		return nil
	}
	sc := *a.sc
	return &sc
}

// Close stops the protocol loop and closes the bridge. Persisted session
// context is untouched; a future instance for the same locator reloads it.
func (a *Actor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.bridge != nil {
		a.bridge.Close()
		a.bridge = nil
	}
}
