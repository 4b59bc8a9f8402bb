package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
)

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any"))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "device-1", time.Hour),
	}
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(store)
			want := Session{
				Username:     "kim",
				Email:        "kim@example.com",
				AccessToken:  token(t, time.Now().Add(time.Hour)),
				IDToken:      "id-token",
				RefreshToken: "refresh-token",
			}
			if err := m.Save(ctx, want); err != nil {
				t.Fatal(err)
			}
			got, err := m.Restore(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if *got != want {
				t.Errorf("restored %+v, want %+v", got, want)
			}
			if m.AccessToken(ctx) != want.AccessToken {
				t.Error("access token mismatch")
			}

			if err := m.Clear(ctx); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Restore(ctx); !errors.Is(err, ErrNoSession) {
				t.Errorf("restore after clear = %v", err)
			}
			if m.AccessToken(ctx) != "" {
				t.Error("token left behind after clear")
			}
		})
	}
}

func TestRestoreExpiredClearsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	m.Save(ctx, Session{Username: "kim", AccessToken: token(t, time.Now().Add(-time.Minute))})

	if _, err := m.Restore(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
	if _, err := store.Get(ctx, KeyUsername); !IsNotFound(err) {
		t.Errorf("username still stored: %v", err)
	}
}

func TestRestoreGarbageToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())
	m.Save(ctx, Session{AccessToken: "not-a-token"})
	if _, err := m.Restore(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())
	m.Save(ctx, Session{Username: "kim", AccessToken: token(t, time.Now().Add(time.Hour))})
	m.Invalidate(ctx)
	if m.AccessToken(ctx) != "" {
		t.Error("session survived invalidation")
	}
}

func TestRedisStoreKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "abc", 10*time.Minute)
	if err := store.Set(ctx, KeyUsername, "kim"); err != nil {
		t.Fatal(err)
	}
	if v, _ := mr.Get("session:abc:username"); v != "kim" {
		t.Errorf("stored value = %q", v)
	}
	if ttl := mr.TTL("session:abc:username"); ttl != 10*time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
	if _, err := store.Get(ctx, KeyEmail); !IsNotFound(err) {
		t.Errorf("missing key err = %v", err)
	}
}
