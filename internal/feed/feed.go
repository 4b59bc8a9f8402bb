// Package feed drives a listing.Controller from the board API for a client.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
)

// ErrStale is returned by Refresh when a newer refresh started before this
// one finished. Its result was dropped.
var ErrStale = errors.New("stale response discarded")

// Source fetches the full post collection.
type Source interface {
	ListAll(ctx context.Context) ([]*models.Post, error)
}

// Feed owns one controller. Every fetch is tagged with a generation and only
// the newest fetch may load its result.
type Feed struct {
	source Source

	mu   sync.Mutex
	ctrl *listing.Controller
	gen  uint64
}

func New(source Source) *Feed {
	return &Feed{source: source, ctrl: listing.NewController()}
}

// Refresh fetches the collection and loads it unless a newer Refresh started
// in the meantime.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	posts, err := f.source.ListAll(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	return f.ctrl.Load(posts)
}

func (f *Feed) SetCategory(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctrl.SetCategory(label)
}

// ApplyURLCategory sets the category from a URL parameter, falling back to
// the wildcard for unknown values.
func (f *Feed) ApplyURLCategory(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.ctrl.SetCategory(listing.CategoryFromQuery(value))
}

func (f *Feed) SetSearchTerm(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctrl.SetSearchTerm(text)
}

func (f *Feed) SetSortKey(key listing.SortKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctrl.SetSortKey(key)
}

func (f *Feed) Category() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctrl.Category()
}

// VisiblePosts returns the current derived list.
func (f *Feed) VisiblePosts() []*models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctrl.VisiblePosts()
}

// Page returns one page of the current derived list.
func (f *Feed) Page(page, perPage int) ([]*models.Post, listing.PageMeta) {
	return listing.Paginate(f.VisiblePosts(), page, perPage)
}
