package session

import (
	"sync"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/identity"
	"github.com/memgate/memgate/internal/logger"
	"go.uber.org/zap"
)

// Manager is the in-process registry mapping locator to actor instance.
// The same identity always resolves to the same locator and therefore the
// same actor for the lifetime of the process; durable session context
// makes the binding survive restarts as well.
type Manager struct {
	deps Deps
	log  *logger.FieldLogger

	mu     sync.Mutex
	actors map[string]*Actor
}

// NewManager creates a session manager.
func NewManager(deps Deps) *Manager {
	if deps.InboundBuffer <= 0 {
		deps.InboundBuffer = 64
	}
	return &Manager{
		deps:   deps,
		actors: make(map[string]*Actor),
		log:    logger.Module("session"),
	}
}

// GetOrCreate resolves the actor for an identity, creating it on first
// use. Malformed identities are rejected before any actor is addressed.
func (m *Manager) GetOrCreate(id string) (*Actor, error) {
	if !identity.IsValid(id) {
		return nil, errors.MalformedIdentity(id)
	}
	locator := identity.Locate(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if actor, ok := m.actors[locator]; ok {
		return actor, nil
	}

	actor := newActor(locator, m.deps)
	m.actors[locator] = actor
	m.log.Info("Session actor created", zap.String("locator", locator))
	return actor, nil
}

// Count returns the number of live actor instances.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actors)
}

// Close shuts down all actors.
func (m *Manager) Close() {
	m.mu.Lock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.actors = make(map[string]*Actor)
	m.mu.Unlock()

	for _, a := range actors {
		a.Close()
	}
}
