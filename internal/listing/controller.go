package listing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hungpv1995/community-board/internal/models"
)

var (
	// ErrInvalidCategory is returned for a label outside the fixed category set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidSortKey is returned for a sort key other than recent or popular.
	ErrInvalidSortKey = errors.New("invalid sort key")

	// ErrLoad is returned when the loaded collection contains a nil post.
	ErrLoad = errors.New("malformed post collection")
)

// SortKey selects the ordering of the visible list.
type SortKey int

const (
	SortRecent SortKey = iota
	SortPopular
)

func (k SortKey) String() string {
	switch k {
	case SortRecent:
		return "latest"
	case SortPopular:
		return "popular"
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

// ParseSortKey maps the sort values used by the API and the board UI.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest", "recent", "최신순":
		return SortRecent, nil
	case "popular", "인기순":
		return SortPopular, nil
	}
	return SortRecent, fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
}

// Controller owns the full post collection and the three list controls. The
// visible list is recomputed from scratch after every change.
//
// A Controller is owned by a single caller and is not safe for concurrent use.
type Controller struct {
	all      []*models.Post
	category string
	search   string
	sortKey  SortKey
	visible  []*models.Post
}

// NewController returns a controller with the wildcard category, an empty
// search term and the recent ordering.
func NewController() *Controller {
	return &Controller{category: AllCategories, sortKey: SortRecent}
}

// Load replaces the full collection. A nil element means the upstream
// collection was not well formed; the previous state is kept in that case.
func (c *Controller) Load(posts []*models.Post) error {
	for i, p := range posts {
		if p == nil {
			return fmt.Errorf("%w: nil post at index %d", ErrLoad, i)
		}
	}
	all := make([]*models.Post, len(posts))
	copy(all, posts)
	c.all = all
	c.recompute()
	return nil
}

// SetCategory filters by label. An unknown label leaves the state unchanged.
func (c *Controller) SetCategory(label string) error {
	if !IsCategory(label) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, label)
	}
	c.category = label
	c.recompute()
	return nil
}

// SetSearchTerm sets the case-insensitive substring filter. Empty disables it.
func (c *Controller) SetSearchTerm(text string) {
	c.search = text
	c.recompute()
}

// SetSortKey changes the ordering. An unknown key leaves the state unchanged.
func (c *Controller) SetSortKey(key SortKey) error {
	if key != SortRecent && key != SortPopular {
		return fmt.Errorf("%w: %v", ErrInvalidSortKey, key)
	}
	c.sortKey = key
	c.recompute()
	return nil
}

// Category, SearchTerm and SortKey report the current controls.
func (c *Controller) Category() string   { return c.category }
func (c *Controller) SearchTerm() string { return c.search }
func (c *Controller) SortKey() SortKey   { return c.sortKey }

// VisiblePosts returns the current derived list. The returned slice is a copy.
func (c *Controller) VisiblePosts() []*models.Post {
	out := make([]*models.Post, len(c.visible))
	copy(out, c.visible)
	return out
}

func (c *Controller) recompute() {
	c.visible = Derive(c.all, c.category, c.search, c.sortKey)
}

// Derive applies the category, search and sort steps, in that order, to posts
// without modifying it.
func Derive(posts []*models.Post, category, search string, key SortKey) []*models.Post {
	out := make([]*models.Post, 0, len(posts))
	term := strings.ToLower(strings.TrimSpace(search))
	for _, p := range posts {
		if category != AllCategories && p.Category != category {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		out = append(out, p)
	}

	switch key {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LikeCount > out[j].LikeCount
		})
	default:
		created := make(map[*models.Post]time.Time, len(out))
		for _, p := range out {
			created[p] = p.CreatedTime()
		}
		sort.SliceStable(out, func(i, j int) bool {
			return created[out[i]].After(created[out[j]])
		})
	}
	return out
}

func matches(p *models.Post, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) ||
		strings.Contains(strings.ToLower(p.Author), term)
}
