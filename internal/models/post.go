package models

import (
	"strings"
	"time"
)

const (
	DefaultAuthor = "Anonymous"

	VisibilityPublic   = "PUBLIC"
	VisibilityPrivate  = "PRIVATE"
	VisibilityUnlisted = "UNLISTED"

	StatusPublished = "PUBLISHED"
	StatusDraft     = "DRAFT"
	StatusDeleted   = "DELETED"
)

// Post represents a board post
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	AuthorID     string    `json:"author_id,omitempty"`
	Category     string    `json:"category"`
	Visibility   string    `json:"visibility,omitempty"`
	Status       string    `json:"status,omitempty"`
	ViewCount    int       `json:"view_count"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at,omitempty"`
	RelatedPosts []Related `json:"related_posts,omitempty"`
}

// Related represents a post of the same category shown on the detail page
type Related struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Author   string `json:"author,omitempty"`
}

// UpdatePostRequest carries a partial update; nil fields are left untouched
type UpdatePostRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	Category   *string `json:"category,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
	Status     *string `json:"status,omitempty"`
}

// SearchResponse represents search results
type SearchResponse struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}

// LikeResult is returned by the like toggle
type LikeResult struct {
	Action    string `json:"action"`
	LikeCount int    `json:"like_count"`
	IsLiked   bool   `json:"is_liked"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats seen on the wire.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way posts and comments carry it.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// CreatedTime returns the creation time, or the Unix epoch when created_at is
// missing or unparseable so such posts order as the oldest.
func (p *Post) CreatedTime() time.Time {
	if t, ok := ParseTimestamp(p.CreatedAt); ok {
		return t
	}
	return time.Unix(0, 0).UTC()
}

// Normalize applies ingestion defaults once so nothing downstream needs
// fallback chains.
func (p *Post) Normalize() {
	p.Author = strings.TrimSpace(p.Author)
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	if p.ViewCount < 0 {
		p.ViewCount = 0
	}
	if p.LikeCount < 0 {
		p.LikeCount = 0
	}
	if p.CommentCount < 0 {
		p.CommentCount = 0
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if p.Status == "" {
		p.Status = StatusPublished
	}
}

// NormalizePosts normalizes every post in place and drops nil entries.
func NormalizePosts(posts []*Post) []*Post {
	out := posts[:0]
	for _, p := range posts {
		if p == nil {
			continue
		}
		p.Normalize()
		out = append(out, p)
	}
	return out
}

// ValidVisibility reports whether v is a known visibility value.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s string) bool {
	switch s {
	case StatusPublished, StatusDraft, StatusDeleted:
		return true
	}
	return false
}
