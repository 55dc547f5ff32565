// Package session keeps the bearer token that authenticates API calls.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/storage/kv"
)

const (
	// BucketName is the kv bucket holding session data.
	BucketName = "session"

	tokenKey       = "auth_token"
	legacyTokenKey = "token"
)

// ErrNoToken is returned when an operation needs a token and none is stored.
var ErrNoToken = errors.New("not logged in")

// Claims are the token fields issued by the LumiSync server.
type Claims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Session persists the bearer token in a kv bucket.
type Session struct {
	bucket kv.Bucket
}

// New creates a session over the given bucket.
func New(bucket kv.Bucket) *Session {
	return &Session{bucket: bucket}
}

// Token returns the stored token, or "" when logged out.
// The older "token" key is honoured when "auth_token" is absent.
func (s *Session) Token() string {
	for _, key := range []string{tokenKey, legacyTokenKey} {
		token, err := kv.GetString(s.bucket, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read session token")
			continue
		}
		if token != "" {
			return token
		}
	}
	return ""
}

// HasToken reports whether a token is stored.
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// SetToken stores a new token, replacing any legacy entry.
// A JWT with a future exp is kept only until it expires.
func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	var opts *kv.StoreOptions
	if claims, err := ParseClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
		if ttl := time.Until(claims.ExpiresAt); ttl > 0 {
			opts = &kv.StoreOptions{TTL: ttl}
		}
	}
	if err := s.bucket.Store(tokenKey, token, opts); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if _, err := s.bucket.Delete(legacyTokenKey); err != nil {
		return fmt.Errorf("failed to drop legacy token: %w", err)
	}
	return nil
}

// Clear removes the token.
func (s *Session) Clear() error {
	for _, key := range []string{tokenKey, legacyTokenKey} {
		if _, err := s.bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to clear token: %w", err)
		}
	}
	return nil
}

// Claims decodes the stored token without verifying its signature;
// the client never holds the server secret.
func (s *Session) Claims() (*Claims, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	return ParseClaims(token)
}

// Expired reports whether the stored token carries an exp in the past.
// Tokens that are not JWTs are never reported expired.
func (s *Session) Expired(now time.Time) bool {
	claims, err := s.Claims()
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}

// ParseClaims decodes a token's claims without verification.
func ParseClaims(token string) (*Claims, error) {
	var raw tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	claims := &Claims{
		Subject: raw.Subject,
		Email:   raw.Email,
		Role:    raw.Role,
	}
	if raw.IssuedAt != nil {
		claims.IssuedAt = raw.IssuedAt.Time
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}
	return claims, nil
}
