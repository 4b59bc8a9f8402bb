package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
)

type result struct {
	posts []*models.Post
	err   error
}

// gatedSource answers each ListAll call with the next queued result, but only
// once the test releases it.
type gatedSource struct {
	calls chan chan result
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(chan chan result)}
}

func (s *gatedSource) ListAll(ctx context.Context) ([]*models.Post, error) {
	reply := make(chan result)
	s.calls <- reply
	r := <-reply
	return r.posts, r.err
}

type staticSource []*models.Post

func (s staticSource) ListAll(context.Context) ([]*models.Post, error) {
	return s, nil
}

func posts() []*models.Post {
	return []*models.Post{
		{ID: "1", Title: "제주 여행", Category: "여행", LikeCount: 5, CreatedAt: "2025-08-20T00:00:00Z"},
		{ID: "2", Title: "고양이", Category: "동물/반려동물", LikeCount: 60, CreatedAt: "2025-08-25T00:00:00Z"},
		{ID: "3", Title: "부산 여행", Category: "여행", LikeCount: 45, CreatedAt: "2025-08-22T00:00:00Z"},
	}
}

func idsOf(list []*models.Post) string {
	s := ""
	for _, p := range list {
		s += p.ID
	}
	return s
}

func TestRefreshAndControls(t *testing.T) {
	f := New(staticSource(posts()))
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := idsOf(f.VisiblePosts()); got != "231" {
		t.Errorf("recent order = %s", got)
	}

	if err := f.SetSortKey(listing.SortPopular); err != nil {
		t.Fatal(err)
	}
	if got := idsOf(f.VisiblePosts()); got != "231" {
		t.Errorf("popular order = %s", got)
	}

	f.ApplyURLCategory("여행")
	if got := idsOf(f.VisiblePosts()); got != "31" {
		t.Errorf("category filter = %s", got)
	}

	f.ApplyURLCategory("없는카테고리")
	if f.Category() != listing.AllCategories {
		t.Errorf("unknown url category = %q", f.Category())
	}

	f.SetSearchTerm("부산")
	if got := idsOf(f.VisiblePosts()); got != "3" {
		t.Errorf("search = %s", got)
	}

	if err := f.SetCategory("bogus"); !errors.Is(err, listing.ErrInvalidCategory) {
		t.Errorf("invalid category err = %v", err)
	}

	page, meta := f.Page(1, 10)
	if len(page) != 1 || meta.Total != 1 {
		t.Errorf("page = %d posts, meta %+v", len(page), meta)
	}
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	src := newGatedSource()
	f := New(src)
	ctx := context.Background()

	slow := make(chan error)
	go func() { slow <- f.Refresh(ctx) }()
	slowReply := <-src.calls

	fast := make(chan error)
	go func() { fast <- f.Refresh(ctx) }()
	fastReply := <-src.calls

	fastReply <- result{posts: posts()[:1]}
	if err := <-fast; err != nil {
		t.Fatal(err)
	}

	slowReply <- result{posts: posts()}
	if err := <-slow; !errors.Is(err, ErrStale) {
		t.Fatalf("slow refresh err = %v, want ErrStale", err)
	}

	if got := idsOf(f.VisiblePosts()); got != "1" {
		t.Errorf("visible = %s, stale result was loaded", got)
	}
}

func TestRefreshErrorKeepsPreviousList(t *testing.T) {
	src := newGatedSource()
	f := New(src)
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- f.Refresh(ctx) }()
	(<-src.calls) <- result{posts: posts()}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	go func() { done <- f.Refresh(ctx) }()
	(<-src.calls) <- result{err: errors.New("network down")}
	if err := <-done; err == nil {
		t.Fatal("expected fetch error")
	}
	if len(f.VisiblePosts()) != 3 {
		t.Error("failed refresh replaced the list")
	}

	go func() { done <- f.Refresh(ctx) }()
	(<-src.calls) <- result{posts: []*models.Post{nil}}
	if err := <-done; !errors.Is(err, listing.ErrLoad) {
		t.Fatalf("malformed collection err = %v", err)
	}
	if len(f.VisiblePosts()) != 3 {
		t.Error("malformed collection replaced the list")
	}
}
