// Package identity validates principal identifiers and derives the
// deterministic locator that addresses a session actor.
package identity

// Length bounds for a well-formed identity token.
const (
	MinLength = 10
	MaxLength = 50
)

// locatorPrefix namespaces locators so the identity value itself is never
// used as a raw addressing key. A prefixed transform keeps locators
// collision-free across distinct identities, which a hash would not
// guarantee over the full input domain.
const locatorPrefix = "session:"

// IsValid reports whether candidate is a well-formed identity: URL-safe
// characters [A-Za-z0-9_-], length 10 to 50 inclusive. Pure, no I/O.
func IsValid(candidate string) bool {
	if len(candidate) < MinLength || len(candidate) > MaxLength {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// Locate derives the stable locator key for a validated identity. The
// same identity always yields the same locator, across process restarts,
// so the registry always addresses the same persistent actor.
// Callers must validate the identity first.
func Locate(id string) string {
	return locatorPrefix + id
}
