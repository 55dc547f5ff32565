// Package kv provides the preference key-value store that replaces browser local storage.
// Buckets are either persisted in SQLite or kept in memory for the process lifetime.
package kv

import (
	"fmt"
	"time"
)

// StoreOptions contains optional parameters for Store operations.
type StoreOptions struct {
	TTL time.Duration // Time-to-live; zero means no expiry
}

// Bucket is the interface for key-value storage operations.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// IsPersistent returns true if the bucket is backed by SQLite.
	IsPersistent() bool

	// Store saves a JSON-serializable value with the given key.
	Store(key string, value any, opts *StoreOptions) error

	// Get retrieves a value by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(key string) (any, error)

	// Exists returns true if the key exists and hasn't expired.
	Exists(key string) (bool, error)

	// Delete removes a key from the bucket.
	// Returns true if the key existed.
	Delete(key string) (bool, error)

	// Keys returns all non-expired keys in the bucket.
	Keys() ([]string, error)

	// Clear removes all keys from the bucket.
	Clear() error
}

// GetString reads a string value. Missing keys return "" and no error.
func GetString(b Bucket, key string) (string, error) {
	v, err := b.Get(key)
	if err != nil || v == nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("key %q in bucket %q holds %T, not a string", key, b.Name(), v)
	}
	return s, nil
}

func expiryFrom(now time.Time, opts *StoreOptions) time.Time {
	if opts == nil || opts.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(opts.TTL)
}
