package kv

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     any
	expiresAt time.Time // Zero value means no expiry
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryBucket is an in-memory bucket (not persisted).
// Values round-trip through JSON so reads look the same as from SQLiteBucket.
type MemoryBucket struct {
	name    string
	entries map[string]*memoryEntry
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryBucket creates a new in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Name returns the bucket name.
func (b *MemoryBucket) Name() string {
	return b.name
}

// IsPersistent returns false (memory buckets are not persistent).
func (b *MemoryBucket) IsPersistent() bool {
	return false
}

// Store saves a value with the given key.
func (b *MemoryBucket) Store(key string, value any, opts *StoreOptions) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("failed to normalize value: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = &memoryEntry{
		value:     normalized,
		expiresAt: expiryFrom(b.now(), opts),
	}
	return nil
}

// lookup returns a live entry, lazily dropping an expired one. Caller holds mu.
func (b *MemoryBucket) lookup(key string) (*memoryEntry, bool) {
	entry, ok := b.entries[key]
	if !ok {
		return nil, false
	}
	if entry.isExpired(b.now()) {
		delete(b.entries, key)
		return nil, false
	}
	return entry, true
}

// Get retrieves a value by key.
func (b *MemoryBucket) Get(key string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(key)
	if !ok {
		return nil, nil
	}
	return entry.value, nil
}

// Exists returns true if the key exists and hasn't expired.
func (b *MemoryBucket) Exists(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.lookup(key)
	return ok, nil
}

// Delete removes a key from the bucket.
func (b *MemoryBucket) Delete(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.lookup(key)
	delete(b.entries, key)
	return ok, nil
}

// Keys returns all non-expired keys in the bucket.
func (b *MemoryBucket) Keys() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.entries))
	for key := range b.entries {
		if _, ok := b.lookup(key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Clear removes all keys from the bucket.
func (b *MemoryBucket) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[string]*memoryEntry)
	return nil
}

// CleanupExpired removes all expired entries from the bucket.
// Returns the number of entries removed.
func (b *MemoryBucket) CleanupExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	count := 0
	for key, entry := range b.entries {
		if entry.isExpired(now) {
			delete(b.entries, key)
			count++
		}
	}
	return count
}
