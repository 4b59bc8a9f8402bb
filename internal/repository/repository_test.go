package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createPost(t *testing.T, repo *PostRepository, title, category string) *models.Post {
	t.Helper()
	post, err := repo.CreatePostWithTransaction(context.Background(), &models.CreatePostRequest{
		Title:    title,
		Content:  "내용입니다 " + title,
		Category: category,
	}, "author-1")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func TestCreateAndGetPost(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))

	created := createPost(t, repo, "제주도 여행", "여행")
	if len(created.ID) != 32 {
		t.Errorf("id %q is not a 32 char hex id", created.ID)
	}
	if created.Author != models.DefaultAuthor {
		t.Errorf("author = %q, want default", created.Author)
	}

	got, err := repo.GetPostByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "제주도 여행" || got.Category != "여행" || got.AuthorID != "author-1" {
		t.Errorf("got %+v", got)
	}
	if got.Status != models.StatusPublished || got.Visibility != models.VisibilityPublic {
		t.Errorf("status/visibility = %s/%s", got.Status, got.Visibility)
	}
	if _, ok := models.ParseTimestamp(got.CreatedAt); !ok {
		t.Errorf("created_at %q does not parse", got.CreatedAt)
	}
}

func TestGetPostNotFound(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))
	_, err := repo.GetPostByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreatePostWritesActivityLog(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, repo, "hello", "여행")

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM activity_logs WHERE post_id = ? AND action = 'new_post'`, post.ID).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("activity rows = %d, want 1", n)
	}
}

func TestListPostsSkipsDeletedAndPrivate(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	keep := createPost(t, repo, "keep", "여행")
	gone := createPost(t, repo, "gone", "여행")
	hidden := createPost(t, repo, "hidden", "여행")

	if err := repo.DeletePost(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	private := models.VisibilityPrivate
	if err := repo.UpdatePost(ctx, hidden.ID, &models.UpdatePostRequest{Visibility: &private}); err != nil {
		t.Fatal(err)
	}

	posts, err := repo.ListPosts(ctx, models.VisibilityPublic)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != keep.ID {
		t.Fatalf("listed %d posts, want only %s", len(posts), keep.ID)
	}

	all, err := repo.ListPosts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("listed %d non-deleted posts, want 2", len(all))
	}

	if _, err := repo.GetPostByID(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted post still found: %v", err)
	}
	if err := repo.DeletePost(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePostPartial(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := createPost(t, repo, "before", "여행")

	title := "  after  "
	if err := repo.UpdatePost(ctx, post.ID, &models.UpdatePostRequest{Title: &title}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "after" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Content != post.Content || got.Category != "여행" {
		t.Errorf("untouched fields changed: %+v", got)
	}

	if err := repo.UpdatePost(ctx, "missing", &models.UpdatePostRequest{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := createPost(t, repo, "likeable", "연예인")

	res, err := repo.ToggleLike(ctx, post.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != "added" || !res.IsLiked || res.LikeCount != 1 {
		t.Errorf("first toggle = %+v", res)
	}

	if _, err := repo.ToggleLike(ctx, post.ID, "u2"); err != nil {
		t.Fatal(err)
	}
	liked, err := repo.IsLiked(ctx, post.ID, "u2")
	if err != nil || !liked {
		t.Errorf("IsLiked(u2) = %v, %v", liked, err)
	}

	res, err = repo.ToggleLike(ctx, post.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != "removed" || res.IsLiked || res.LikeCount != 1 {
		t.Errorf("second toggle = %+v", res)
	}

	if _, err := repo.ToggleLike(ctx, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestToggleLikeNeverNegative(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, repo, "drifted", "여행")

	if _, err := repo.ToggleLike(ctx, post.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	// counter drifted out of sync with the likes table
	if _, err := db.Exec(`UPDATE posts SET like_count = 0 WHERE id = ?`, post.ID); err != nil {
		t.Fatal(err)
	}
	res, err := repo.ToggleLike(ctx, post.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.LikeCount != 0 {
		t.Errorf("like count = %d, want 0", res.LikeCount)
	}
}

func TestAddLikeTwiceCountsOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, repo, "double tap", "여행")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.addLike(ctx, tx, post.ID, "u1"); err != nil {
			t.Fatalf("addLike #%d: %v", i+1, err)
		}
	}
	if err := repo.removeLike(ctx, tx, post.ID, "u2"); err != nil {
		t.Fatalf("removeLike without a like: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LikeCount != 1 {
		t.Errorf("like count = %d, want 1", got.LikeCount)
	}
}

func TestToggleLikeConcurrent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, repo, "popular", "연예인")

	const toggles = 9
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ToggleLike(ctx, post.ID, "u1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("toggle: %v", err)
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, post.ID).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 || got.LikeCount != rows {
		t.Errorf("likes rows = %d, like_count = %d, want 1 and 1", rows, got.LikeCount)
	}
}

func TestIncrementViewCount(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := createPost(t, repo, "views", "여행")

	for want := 1; want <= 2; want++ {
		got, err := repo.IncrementViewCount(ctx, post.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("views = %d, want %d", got, want)
		}
	}
	if _, err := repo.IncrementViewCount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	post := createPost(t, posts, "with comments", "여행")

	first := &models.Comment{PostID: post.ID, AuthorID: "u1", Author: "kim", Content: "첫 댓글"}
	if err := comments.CreateComment(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &models.Comment{PostID: post.ID, AuthorID: "u2", Content: "두번째"}
	if err := comments.CreateComment(ctx, second); err != nil {
		t.Fatal(err)
	}
	if second.Author != models.DefaultAuthor {
		t.Errorf("author = %q", second.Author)
	}

	list, err := comments.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("comments = %+v", list)
	}

	got, err := posts.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CommentCount != 2 {
		t.Errorf("comment count = %d, want 2", got.CommentCount)
	}

	if err := comments.DeleteComment(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = posts.GetPostByID(ctx, post.ID)
	if got.CommentCount != 1 {
		t.Errorf("comment count after delete = %d, want 1", got.CommentCount)
	}
	if _, err := comments.GetComment(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted comment err = %v", err)
	}

	orphan := &models.Comment{PostID: "missing", Content: "nobody home"}
	if err := comments.CreateComment(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Errorf("comment on missing post err = %v", err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	u := &models.User{Username: "kim", Email: "Kim@Example.com", PasswordHash: "hash"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.Email != "kim@example.com" || !u.IsActive {
		t.Errorf("stored user = %+v", u)
	}

	dupName := &models.User{Username: "kim", Email: "other@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, dupName); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username err = %v", err)
	}
	dupEmail := &models.User{Username: "lee", Email: "KIM@example.com", PasswordHash: "x"}
	err := repo.CreateUser(ctx, dupEmail)
	if !errors.Is(err, ErrConflict) || err.Error() != "email: already exists" {
		t.Errorf("duplicate email err = %v", err)
	}

	byName, err := repo.FindByLogin(ctx, "kim")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("find by username = %+v, %v", byName, err)
	}
	byEmail, err := repo.FindByLogin(ctx, "KIM@EXAMPLE.COM")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("find by email = %+v, %v", byEmail, err)
	}
	if _, err := repo.FindByLogin(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	phone := " 010-1234-5678 "
	updated, err := repo.UpdateUser(ctx, u.ID, &models.UpdateUserRequest{Phone: &phone})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Phone != "010-1234-5678" {
		t.Errorf("phone = %q", updated.Phone)
	}
}
