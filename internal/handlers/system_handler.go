package handlers

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/hungpv1995/community-board/internal/listing"
)

// Pinger is a dependency checked by the health route.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ListCategories handles GET /categories
func ListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondSuccess(w, http.StatusOK, "", listing.Categories(), nil)
	}
}

// Health handles GET /health. It answers 503 when any dependency fails.
func Health(deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(names))
		for _, name := range names {
			if err := deps[name].Ping(ctx); err != nil {
				log.Printf("Health check %s failed: %v", name, err)
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "up"
		}

		if status != http.StatusOK {
			respondError(w, status, "Service unhealthy", checks)
			return
		}
		respondSuccess(w, status, "Service healthy", checks, nil)
	}
}
