// Package memory provides the memory store capability used by the tool
// handlers. All operations are scoped by the bound identity; the store is
// the only resource shared across session actors, and the identity scope
// on every call is the second half of the isolation guarantee.
package memory

import (
	"context"
	"time"
)

// Entry is a single remembered item.
type Entry struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is a search hit with its relevance score.
type Result struct {
	Entry
	Score float64 `json:"score"`
}

// Store is the capability interface to the memory service. Implementations
// must never run a cross-identity query; every read and write carries the
// identity it is scoped to.
type Store interface {
	// Save persists content for the given identity.
	Save(ctx context.Context, identity, content string) (*Entry, error)
	// Search returns up to limit entries for the identity, ranked by
	// relevance to the query.
	Search(ctx context.Context, identity, query string, limit int) ([]Result, error)
	// Count returns the number of entries stored for the identity.
	Count(ctx context.Context, identity string) (int, error)
	// Close releases the underlying resources.
	Close() error
}
