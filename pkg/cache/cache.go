// Package cache implements the endpoint-scoped response cache of the gateway.
//
// # Cache Table
//
// [Table] holds one [Entry] per cache slot: fixed singleton slots for known
// singleton resources (current-user profile, course list, enrollment list)
// and an open-ended id-keyed slot for per-item resources (course details).
// Which slot an endpoint maps to is decided by a declarative routing table
// ([DefaultRoutes]); which slots a successful write clears is decided by an
// invalidation table ([DefaultInvalidations]). Adding a cacheable resource is
// a table edit.
//
//	table := cache.NewTable()
//	table.Store(ctx, "/courses/", body)
//	data, ok := table.Lookup(ctx, "/courses/")    // fresh hit
//	table.Invalidate(ctx, "/courses/42")          // clears list and course 42
//	table.InvalidateAll(ctx)                      // e.g. on logout
//
// Lookup never returns stale data: an entry is returned only while
// now - timestamp < ttl (a ttl of 0 never expires).
//
// # Mirrors
//
// A Table may mirror its entries into a byte store implementing [Cache], so
// that short-lived processes share cached responses:
//   - [NullCache]: no mirror (default)
//   - [FileCache]: JSON files under a directory
//   - [RedisCache]: a Redis server, keys under a prefix
//
// The in-memory table stays authoritative within a process. Mirror failures
// degrade to a miss and are logged; they never fail a request.
//
// # Scopes
//
// Entries are kept apart per credential. The gateway attaches
// [CredentialScope] of the bearer token to the context with [WithScope];
// mirror keys are prefixed with it, so a profile cached for one user is
// never served to another.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store the Table mirrors its entries into.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
