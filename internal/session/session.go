// Package session keeps the signed-in user's tokens in a key-value store so
// a client survives restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
)

// Keys written by Manager.Save.
const (
	KeyAccessToken  = "accessToken"
	KeyIDToken      = "idToken"
	KeyRefreshToken = "refreshToken"
	KeyUsername     = "username"
	KeyEmail        = "email"
)

var allKeys = []string{KeyAccessToken, KeyIDToken, KeyRefreshToken, KeyUsername, KeyEmail}

var (
	ErrNoSession   = errors.New("no active session")
	ErrKeyNotFound = errors.New("key not found")
)

// Store is the persistence port. Get returns an error wrapping ErrKeyNotFound
// for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

type Session struct {
	Username     string
	Email        string
	AccessToken  string
	IDToken      string
	RefreshToken string
}

// Manager creates, restores and destroys the session.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Save persists a session after login or signup.
func (m *Manager) Save(ctx context.Context, s Session) error {
	values := map[string]string{
		KeyAccessToken:  s.AccessToken,
		KeyIDToken:      s.IDToken,
		KeyRefreshToken: s.RefreshToken,
		KeyUsername:     s.Username,
		KeyEmail:        s.Email,
	}
	for _, key := range allKeys {
		if err := m.store.Set(ctx, key, values[key]); err != nil {
			return fmt.Errorf("failed to save session %s: %w", key, err)
		}
	}
	return nil
}

// Restore loads the stored session. A missing or expired access token clears
// the store and yields ErrNoSession.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	var s Session
	fields := map[string]*string{
		KeyAccessToken:  &s.AccessToken,
		KeyIDToken:      &s.IDToken,
		KeyRefreshToken: &s.RefreshToken,
		KeyUsername:     &s.Username,
		KeyEmail:        &s.Email,
	}
	for key, dst := range fields {
		v, err := m.store.Get(ctx, key)
		if err != nil && !IsNotFound(err) {
			return nil, fmt.Errorf("failed to restore session %s: %w", key, err)
		}
		*dst = v
	}

	if s.AccessToken == "" || m.expired(s.AccessToken) {
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return &s, nil
}

// AccessToken returns the stored access token, or "" when signed out.
func (m *Manager) AccessToken(ctx context.Context) string {
	token, err := m.store.Get(ctx, KeyAccessToken)
	if err != nil && !IsNotFound(err) {
		log.Printf("Failed to read access token: %v", err)
	}
	return token
}

// Clear removes every session key. Used on logout.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Invalidate drops the session after the server rejected its token.
func (m *Manager) Invalidate(ctx context.Context) {
	log.Println("Session token rejected, signing out")
	if err := m.Clear(ctx); err != nil {
		log.Printf("Failed to invalidate session: %v", err)
	}
}

// expired reads the exp claim without verifying the signature.
func (m *Manager) expired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !m.now().Before(claims.ExpiresAt.Time)
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// RedisStore keeps the session in Redis under "session:<id>:<key>".
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore stores keys for the given session id. A zero ttl keeps keys
// until they are deleted.
func NewRedisStore(client *redis.Client, id string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "session:" + id + ":", ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.client.Del(ctx, full...).Err()
}
