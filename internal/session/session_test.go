package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/dokzlo13/lumictl/internal/storage/kv"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := tokenClaims{
		Email: "user@example.com",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSession_TokenLifecycle(t *testing.T) {
	s := New(kv.NewMemoryBucket(BucketName))

	if s.HasToken() {
		t.Fatal("new session should have no token")
	}
	if _, err := s.Claims(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Claims() error = %v, want ErrNoToken", err)
	}

	if err := s.SetToken("abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if got := s.Token(); got != "abc" {
		t.Errorf("Token() = %q, want abc", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.HasToken() {
		t.Error("token should be gone after Clear")
	}
}

func TestSession_LegacyKey(t *testing.T) {
	bucket := kv.NewMemoryBucket(BucketName)
	if err := bucket.Store(legacyTokenKey, "old", nil); err != nil {
		t.Fatal(err)
	}
	s := New(bucket)

	if got := s.Token(); got != "old" {
		t.Errorf("Token() = %q, want legacy value", got)
	}

	if err := s.SetToken("new"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := bucket.Exists(legacyTokenKey); ok {
		t.Error("SetToken should drop the legacy key")
	}
	if got := s.Token(); got != "new" {
		t.Errorf("Token() = %q, want new", got)
	}
}

func TestSession_EmptyTokenClears(t *testing.T) {
	s := New(kv.NewMemoryBucket(BucketName))
	_ = s.SetToken("abc")
	if err := s.SetToken("   "); err != nil {
		t.Fatal(err)
	}
	if s.HasToken() {
		t.Error("blank SetToken should clear the session")
	}
}

func TestSession_Claims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(kv.NewMemoryBucket(BucketName))
	if err := s.SetToken(signedToken(t, exp)); err != nil {
		t.Fatal(err)
	}

	claims, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims() error = %v", err)
	}
	if claims.Subject != "7" || claims.Email != "user@example.com" || claims.Role != "admin" {
		t.Errorf("Claims() = %+v", claims)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}

	if s.Expired(exp.Add(-time.Minute)) {
		t.Error("token should be valid before exp")
	}
	if !s.Expired(exp.Add(time.Minute)) {
		t.Error("token should be expired after exp")
	}
}

func TestSession_OpaqueTokenNeverExpires(t *testing.T) {
	s := New(kv.NewMemoryBucket(BucketName))
	_ = s.SetToken("not-a-jwt")

	if s.Expired(time.Now()) {
		t.Error("opaque token should not be reported expired")
	}
	if _, err := s.Claims(); err == nil {
		t.Error("Claims() on opaque token should fail")
	}
}

type recordingBucket struct {
	*kv.MemoryBucket
	opts map[string]*kv.StoreOptions
}

func (b *recordingBucket) Store(key string, value any, opts *kv.StoreOptions) error {
	b.opts[key] = opts
	return b.MemoryBucket.Store(key, value, opts)
}

func TestSession_TokenTTLFollowsExpiry(t *testing.T) {
	bucket := &recordingBucket{MemoryBucket: kv.NewMemoryBucket(BucketName), opts: map[string]*kv.StoreOptions{}}
	s := New(bucket)

	if err := s.SetToken(signedToken(t, time.Now().Add(2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	opts := bucket.opts[tokenKey]
	if opts == nil || opts.TTL < time.Hour || opts.TTL > 2*time.Hour {
		t.Errorf("TTL = %+v, want about 2h", opts)
	}

	// Already expired and opaque tokens are stored without a TTL
	if err := s.SetToken(signedToken(t, time.Now().Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}
	if bucket.opts[tokenKey] != nil {
		t.Errorf("expired token TTL = %+v, want none", bucket.opts[tokenKey])
	}
	if err := s.SetToken("opaque"); err != nil {
		t.Fatal(err)
	}
	if bucket.opts[tokenKey] != nil {
		t.Errorf("opaque token TTL = %+v, want none", bucket.opts[tokenKey])
	}
}
