package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/handlers"
	"github.com/hungpv1995/community-board/internal/listing"
	"github.com/hungpv1995/community-board/internal/models"
	"github.com/hungpv1995/community-board/internal/repository"
	"github.com/hungpv1995/community-board/internal/routes"
	"github.com/hungpv1995/community-board/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	issuer := auth.NewIssuer("secret", "test", time.Hour, time.Hour)
	posts := handlers.NewPostHandler(repository.NewPostRepository(db), nil, nil, nil, time.Minute, time.Minute)
	srv := httptest.NewServer(routes.NewRouter(routes.Handlers{
		Posts:    posts,
		Comments: handlers.NewCommentHandler(repository.NewCommentRepository(db), posts),
		Users:    handlers.NewUserHandler(repository.NewUserRepository(db), issuer),
	}, issuer))
	t.Cleanup(srv.Close)
	return srv
}

func TestDecodePosts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"posts envelope", `{"posts":[{"id":"a"},{"id":"b"}]}`, 2},
		{"data envelope", `{"success":true,"data":[{"id":"a"}]}`, 1},
		{"empty data", `{"data":[]}`, 0},
		{"no envelope", `{"items":[{"id":"a"}]}`, 0},
		{"not json", `<html>`, 0},
		{"data is not a list", `{"data":{"id":"a"}}`, 0},
		{"bare array", `[{"id":"a"}]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePosts([]byte(tt.body))
			if got == nil || len(got) != tt.want {
				t.Fatalf("got %v, want %d posts", got, tt.want)
			}
		})
	}

	got := DecodePosts([]byte(`{"posts":[{"id":"a","author":"","like_count":-2}]}`))
	if got[0].Author != models.DefaultAuthor || got[0].LikeCount != 0 {
		t.Errorf("decoded posts are not normalized: %+v", got[0])
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	sess := session.NewManager(session.NewMemoryStore())
	c := New(srv.URL+"/api/v1", srv.Client(), sess)

	if _, err := c.Posts.CreatePost(ctx, &models.CreatePostRequest{Title: "t", Content: "content", Category: "여행"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous create err = %v", err)
	}

	reg, err := c.Users.Register(ctx, &models.RegisterRequest{Username: "kim", Email: "kim@example.com", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}
	restored, err := sess.Restore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Username != "kim" || restored.AccessToken != reg.Tokens.AccessToken {
		t.Errorf("session = %+v", restored)
	}

	me, err := c.Users.Me(ctx)
	if err != nil || me.Username != "kim" {
		t.Fatalf("me = %+v, %v", me, err)
	}
	if profile, err := c.Users.Get(ctx, me.ID); err != nil || profile.Email != "kim@example.com" {
		t.Fatalf("own profile = %+v, %v", profile, err)
	}
	if _, err := c.Users.Get(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("missing profile err = %v", err)
	}

	var created []*models.Post
	for _, title := range []string{"제주 여행기", "부산 여행기", "헬스 루틴"} {
		category := "여행"
		if title == "헬스 루틴" {
			category = "건강/헬스"
		}
		p, err := c.Posts.CreatePost(ctx, &models.CreatePostRequest{Title: title, Content: title + " 내용입니다", Category: category})
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, p)
	}

	page, err := c.Posts.ListPosts(ctx, ListParams{Category: "여행", PerPage: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Posts) != 1 || page.Meta.Total != 2 || page.Meta.Pages != 2 {
		t.Errorf("page = %d posts, meta %+v", len(page.Posts), page.Meta)
	}

	all, err := c.Posts.ListAll(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("list all = %d, %v", len(all), err)
	}

	like, err := c.Posts.ToggleLike(ctx, created[0].ID)
	if err != nil || !like.IsLiked || like.LikeCount != 1 {
		t.Fatalf("like = %+v, %v", like, err)
	}
	if liked, err := c.Posts.LikeStatus(ctx, created[0].ID); err != nil || !liked {
		t.Errorf("like status = %v, %v", liked, err)
	}

	popular, err := c.Posts.ListPosts(ctx, ListParams{Sort: listing.SortPopular})
	if err != nil || popular.Posts[0].ID != created[0].ID {
		t.Errorf("popular first = %v, %v", popular, err)
	}

	comment, err := c.Comments.CreateComment(ctx, created[0].ID, "좋아요")
	if err != nil {
		t.Fatal(err)
	}
	comments, err := c.Comments.ListComments(ctx, created[0].ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("comments = %v, %v", comments, err)
	}
	if err := c.Comments.DeleteComment(ctx, comment.ID); err != nil {
		t.Fatal(err)
	}

	got, err := c.Posts.GetPost(ctx, created[1].ID)
	if err != nil || got.Title != "부산 여행기" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if _, err := c.Posts.GetPost(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("missing post err = %v", err)
	}

	title := "부산 여행기 2"
	if updated, err := c.Posts.UpdatePost(ctx, created[1].ID, &models.UpdatePostRequest{Title: &title}); err != nil || updated.Title != title {
		t.Errorf("update = %+v, %v", updated, err)
	}
	if err := c.Posts.DeletePost(ctx, created[2].ID); err != nil {
		t.Fatal(err)
	}

	categories, err := c.Posts.Categories(ctx)
	if err != nil || len(categories) != len(listing.Categories()) {
		t.Errorf("categories = %v, %v", categories, err)
	}

	if err := c.Users.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Restore(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("restore after logout = %v", err)
	}
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	sess := session.NewManager(session.NewMemoryStore())

	other := auth.NewIssuer("other-secret", "test", time.Hour, time.Hour)
	tokens, _ := other.Issue("u1", "kim", "")
	sess.Save(ctx, session.Session{Username: "kim", AccessToken: tokens.AccessToken})

	c := New(srv.URL+"/api/v1", srv.Client(), sess)
	_, err := c.Users.Me(ctx)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if sess.AccessToken(ctx) != "" {
		t.Error("session kept after 401")
	}
}

func TestLoginFailure(t *testing.T) {
	ctx := context.Background()
	c := New(newTestServer(t).URL+"/api/v1", nil, nil)
	if _, err := c.Users.Register(ctx, &models.RegisterRequest{Username: "kim", Email: "kim@example.com", Password: "password123"}); err != nil {
		t.Fatal(err)
	}
	_, err := c.Users.Login(ctx, "kim", "wrong-password")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if res, err := c.Users.Login(ctx, "kim@example.com", "password123"); err != nil || res.Tokens.AccessToken == "" {
		t.Fatalf("login = %+v, %v", res, err)
	}
}
