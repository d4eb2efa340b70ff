// Package cache caches storage-listing responses so repeated browse polls
// from the dashboard do not hammer the object store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache interface for caching operations
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes all values matching a pattern (e.g., "cache:storage:*")
	DeleteByPattern(ctx context.Context, pattern string) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes for storage listing caching
const (
	// KeyPrefixBrowse is the prefix for bucket browse listings
	KeyPrefixBrowse = "cache:storage:browse"

	// KeyPrefixFolders is the prefix for recursive folder listings
	KeyPrefixFolders = "cache:storage:folders"
)

// TTL configurations
const (
	// TTLBrowse is the TTL for browse listings (30 seconds)
	TTLBrowse = 30 * time.Second

	// TTLFolders is the TTL for folder listings (60 seconds)
	TTLFolders = 60 * time.Second
)

// BrowseKey builds the cache key for one bucket/prefix browse listing.
func BrowseKey(bucket, prefix string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefixBrowse, bucket, prefix)
}
