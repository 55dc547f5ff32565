package kv

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager manages bucket lifecycle and provides access to buckets.
// A Manager without a database hands out memory buckets only.
type Manager struct {
	db             *sql.DB
	buckets        map[string]Bucket
	mu             sync.Mutex
	cleanupStop    chan struct{}
	cleanupStopped chan struct{}
}

// NewManager creates a new KV manager. db may be nil.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		db:      db,
		buckets: make(map[string]Bucket),
	}
}

// Bucket returns a bucket by name, creating it if it doesn't exist.
// If persistent is true and a database is attached, the bucket is backed by SQLite.
func (m *Manager) Bucket(name string, persistent bool) Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket, ok := m.buckets[name]; ok {
		return bucket
	}

	var bucket Bucket
	switch {
	case persistent && m.db != nil:
		bucket = NewSQLiteBucket(m.db, name)
	case persistent:
		log.Warn().Str("bucket", name).Msg("No database attached, preferences will not survive restart")
		bucket = NewMemoryBucket(name)
	default:
		bucket = NewMemoryBucket(name)
	}

	m.buckets[name] = bucket
	log.Debug().
		Str("bucket", name).
		Bool("persistent", bucket.IsPersistent()).
		Msg("Created KV bucket")

	return bucket
}

// StartCleanup starts a background goroutine that periodically cleans up expired entries.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.cleanupStop = make(chan struct{})
	m.cleanupStopped = make(chan struct{})

	go func() {
		defer close(m.cleanupStopped)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.cleanupStop:
				return
			case <-ticker.C:
				m.cleanup()
			}
		}
	}()

	log.Debug().Dur("interval", interval).Msg("Started KV cleanup goroutine")
}

// StopCleanup stops the background cleanup goroutine.
func (m *Manager) StopCleanup() {
	if m.cleanupStop != nil {
		close(m.cleanupStop)
		<-m.cleanupStopped
		m.cleanupStop = nil
		log.Debug().Msg("Stopped KV cleanup goroutine")
	}
}

func (m *Manager) cleanup() {
	if m.db != nil {
		count, err := CleanupExpired(m.db)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to cleanup expired KV entries from SQLite")
		} else if count > 0 {
			log.Debug().Int64("count", count).Msg("Cleaned up expired KV entries from SQLite")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bucket := range m.buckets {
		if mb, ok := bucket.(*MemoryBucket); ok {
			if cleaned := mb.CleanupExpired(); cleaned > 0 {
				log.Debug().
					Str("bucket", mb.Name()).
					Int("count", cleaned).
					Msg("Cleaned up expired KV entries from memory bucket")
			}
		}
	}
}
