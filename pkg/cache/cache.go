// Package cache stores the results of expensive external queries, chiefly
// the per-component build-tool invocations that report build and test
// dependencies.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments and [NullCache] to disable caching. Keys are
// produced by a [Keyer] so that the inputs that determine a result (the
// component's Makefile contents, the queried variable) are part of the key
// and a changed Makefile is never served a stale answer.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by backends that can drop all their entries.
type Clearer interface {
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// Keyer derives cache keys.
type Keyer interface {
	// BuildQueryKey identifies one build-tool query for a component.
	BuildQueryKey(component, variable string, makefile []byte) string
	// HTTPKey identifies a downloaded asset.
	HTTPKey(url string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// BuildQueryKey hashes the component, the variable and the Makefile.
func (DefaultKeyer) BuildQueryKey(component, variable string, makefile []byte) string {
	return hashKey("buildq", component, variable, Hash(makefile))
}

// HTTPKey keys downloads by URL.
func (DefaultKeyer) HTTPKey(url string) string {
	return "http:" + url
}
