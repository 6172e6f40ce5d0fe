// Package cache stores derived chart artifacts keyed by content hash.
//
// Replaying a message stream against a snapshot and rendering a page are
// both pure functions of their inputs, so their results can be cached under
// a hash of those inputs. Three backends implement [Cache]:
//   - [FileCache]: one file per entry, for the CLI
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that callers never format keys by hand.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached data and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Key types reported to the observability hooks.
const (
	KeyTypeReplay = "replay"
	KeyTypeRender = "render"
)

// ReplayKeyOpts are the options that change a replay result.
type ReplayKeyOpts struct {
	NumGradings int  `json:"num_gradings,omitempty"`
	Resolve     bool `json:"resolve,omitempty"`
}

// RenderKeyOpts are the options that change a rendered page.
type RenderKeyOpts struct {
	Format string    `json:"format"`
	Page   string    `json:"page"`
	Box    []float64 `json:"box,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ReplayKey keys the snapshot obtained by applying the messages with
	// hash messagesHash to the snapshot with hash snapshotHash.
	ReplayKey(snapshotHash, messagesHash string, opts ReplayKeyOpts) string

	// RenderKey keys a rendered page of the snapshot with hash snapshotHash.
	RenderKey(snapshotHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes its inputs under a per-kind prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ReplayKey implements Keyer.
func (DefaultKeyer) ReplayKey(snapshotHash, messagesHash string, opts ReplayKeyOpts) string {
	return hashKey(KeyTypeReplay, snapshotHash, messagesHash, opts)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return hashKey(KeyTypeRender, snapshotHash, opts)
}

// Lookup reads key from c and reports the hit or miss to the hooks.
func Lookup(ctx context.Context, c Cache, keyType, key string) ([]byte, bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		hooks().OnCacheHit(ctx, keyType)
	} else {
		hooks().OnCacheMiss(ctx, keyType)
	}
	return data, ok, nil
}

// Store writes key to c and reports the write to the hooks.
func Store(ctx context.Context, c Cache, keyType, key string, data []byte, ttl time.Duration) error {
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	hooks().OnCacheSet(ctx, keyType, len(data))
	return nil
}
