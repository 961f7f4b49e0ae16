// Package cache stores computed layouts so identical requests are served
// without re-running the simulation.
//
// Three backends implement [Cache]:
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: sharded files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP service
//
// Keys come from a [Keyer], which hashes the graph document together with
// every parameter that changes the result, so a changed option never
// returns a stale layout.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was present.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// DefaultLayoutTTL is how long layouts are kept by the CLI and service.
const DefaultLayoutTTL = 7 * 24 * time.Hour
