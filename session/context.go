// Package session implements the per-identity session actor and the
// registry that routes each locator to exactly one actor instance.
package session

import "time"

// Context is the durable state bound to one session actor. It is created
// on the first request for an identity and survives actor restarts; only
// LastAccessedAt changes afterwards.
type Context struct {
	Identity       string    `json:"identity"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Store persists session contexts keyed by locator.
type Store interface {
	// Load returns the context for a locator, or nil when absent.
	Load(locator string) (*Context, error)
	// Save persists the context for a locator.
	Save(locator string, sc *Context) error
	// Close releases underlying resources.
	Close() error
}
