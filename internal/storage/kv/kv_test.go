package kv

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func exerciseBucket(t *testing.T, b Bucket) {
	t.Helper()

	if v, err := b.Get("missing"); err != nil || v != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", v, err)
	}

	if err := b.Store("theme", "dark", nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := GetString(b, "theme")
	if err != nil || got != "dark" {
		t.Fatalf("GetString(theme) = %q, %v", got, err)
	}

	if err := b.Store("count", 3, nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if v, _ := b.Get("count"); v != float64(3) {
		t.Errorf("Get(count) = %#v, want float64(3)", v)
	}
	if _, err := GetString(b, "count"); err == nil {
		t.Error("GetString on a number should fail")
	}

	keys, err := b.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "count" || keys[1] != "theme" {
		t.Errorf("Keys() = %v", keys)
	}

	existed, err := b.Delete("theme")
	if err != nil || !existed {
		t.Errorf("Delete(theme) = %v, %v", existed, err)
	}
	if ok, _ := b.Exists("theme"); ok {
		t.Error("theme should be gone after Delete")
	}

	if err := b.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if keys, _ := b.Keys(); len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v", keys)
	}
}

func TestMemoryBucket(t *testing.T) {
	exerciseBucket(t, NewMemoryBucket("prefs"))
}

func TestSQLiteBucket(t *testing.T) {
	database := openTestDB(t)
	exerciseBucket(t, NewSQLiteBucket(database.DB, "prefs"))
}

func TestSQLiteBucket_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.sqlite")

	first, err := db.Open(path)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := NewSQLiteBucket(first.DB, "session").Store("auth_token", "abc", nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	first.Close()

	second, err := db.Open(path)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer second.Close()

	got, err := GetString(NewSQLiteBucket(second.DB, "session"), "auth_token")
	if err != nil || got != "abc" {
		t.Errorf("token after reopen = %q, %v", got, err)
	}
}

func TestMemoryBucket_TTL(t *testing.T) {
	b := NewMemoryBucket("ttl")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Store("k", "v", &StoreOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ok, _ := b.Exists("k"); !ok {
		t.Fatal("k should exist before expiry")
	}

	now = now.Add(2 * time.Minute)
	if v, _ := b.Get("k"); v != nil {
		t.Errorf("Get(k) after expiry = %v", v)
	}

	if err := b.Store("k2", "v", &StoreOptions{TTL: time.Second}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	now = now.Add(time.Minute)
	if n := b.CleanupExpired(); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}
}

func TestManager_FallsBackToMemory(t *testing.T) {
	m := NewManager(nil)

	b := m.Bucket("session", true)
	if b.IsPersistent() {
		t.Error("bucket without database should not be persistent")
	}
	if m.Bucket("session", true) != b {
		t.Error("Bucket() should return the same instance for the same name")
	}
}

func TestManager_Persistent(t *testing.T) {
	database := openTestDB(t)
	m := NewManager(database.DB)

	if !m.Bucket("prefs", true).IsPersistent() {
		t.Error("prefs bucket should be persistent")
	}
	if m.Bucket("scratch", false).IsPersistent() {
		t.Error("scratch bucket should be in memory")
	}
}
