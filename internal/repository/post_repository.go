package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

const postColumns = `id, title, content, author, author_id, category, visibility, status,
	view_count, like_count, comment_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// newID returns a 32 character hex identifier.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type PostRepository struct {
	db *database.DB
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var createdAt, updatedAt time.Time
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.AuthorID, &p.Category,
		&p.Visibility, &p.Status, &p.ViewCount, &p.LikeCount, &p.CommentCount,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = models.FormatTimestamp(createdAt)
	p.UpdatedAt = models.FormatTimestamp(updatedAt)
	return &p, nil
}

// CreatePostWithTransaction creates a new post and logs the activity in a transaction
func (r *PostRepository) CreatePostWithTransaction(ctx context.Context, req *models.CreatePostRequest, authorID string) (*models.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	post := &models.Post{
		ID:       newID(),
		Title:    req.Title,
		Content:  req.Content,
		Author:   req.Author,
		AuthorID: authorID,
		Category: req.Category,
	}
	post.Normalize()

	_, err = tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO posts (id, title, content, author, author_id, category, visibility, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		post.ID, post.Title, post.Content, post.Author, post.AuthorID, post.Category,
		post.Visibility, post.Status, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO activity_logs (action, post_id, created_at) VALUES (?, ?, ?)`),
		"new_post", post.ID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert activity log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.CreatedAt = models.FormatTimestamp(now)
	post.UpdatedAt = post.CreatedAt
	return post, nil
}

// GetPostByID retrieves a post by its ID. Deleted posts are not found.
func (r *PostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+postColumns+` FROM posts WHERE id = ? AND status <> ?`),
		id, models.StatusDeleted,
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// ListPosts returns the non-deleted posts with the given visibility, newest first.
// An empty visibility lists every non-deleted post.
func (r *PostRepository) ListPosts(ctx context.Context, visibility string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status <> ?`
	args := []any{models.StatusDeleted}
	if visibility != "" {
		query += ` AND visibility = ?`
		args = append(args, visibility)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// UpdatePost applies the non-nil fields of req
func (r *PostRepository) UpdatePost(ctx context.Context, id string, req *models.UpdatePostRequest) error {
	var sets []string
	var args []any
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, strings.TrimSpace(*value))
		}
	}
	add("title", req.Title)
	add("content", req.Content)
	add("category", req.Category)
	add("visibility", req.Visibility)
	add("status", req.Status)

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id, models.StatusDeleted)

	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status <> ?`),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireRow(result, "post", id)
}

// DeletePost marks a post as deleted
func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`),
		models.StatusDeleted, time.Now().UTC(), id, models.StatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(result, "post", id)
}

// IncrementViewCount adds one view and returns the new count
func (r *PostRepository) IncrementViewCount(ctx context.Context, id string) (int, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET view_count = view_count + 1 WHERE id = ? AND status <> ?`),
		id, models.StatusDeleted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to increment view count: %w", err)
	}
	if err := requireRow(result, "post", id); err != nil {
		return 0, err
	}

	var views int
	err = r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT view_count FROM posts WHERE id = ?`), id).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("failed to read view count: %w", err)
	}
	return views, nil
}

// ToggleLike adds the user's like or removes it when it already exists
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.LikeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var likeCount int
	err = tx.QueryRowContext(ctx, r.db.Rebind(
		`SELECT like_count FROM posts WHERE id = ? AND status <> ?`),
		postID, models.StatusDeleted,
	).Scan(&likeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, r.db.Rebind(
		`SELECT COUNT(*) FROM likes WHERE post_id = ? AND user_id = ?`),
		postID, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check like: %w", err)
	}

	result := &models.LikeResult{}
	if exists > 0 {
		if err := r.removeLike(ctx, tx, postID, userID); err != nil {
			return nil, err
		}
		result.Action = "removed"
	} else {
		if err := r.addLike(ctx, tx, postID, userID); err != nil {
			return nil, err
		}
		result.Action = "added"
		result.IsLiked = true
	}

	err = tx.QueryRowContext(ctx, r.db.Rebind(`SELECT like_count FROM posts WHERE id = ?`), postID).
		Scan(&result.LikeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read like count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// addLike inserts the like and bumps like_count only when the row is new. A
// concurrent toggle by the same user may already have inserted it.
func (r *PostRepository) addLike(ctx context.Context, tx *sql.Tx, postID, userID string) error {
	res, err := tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (post_id, user_id) DO NOTHING`),
		postID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`), postID); err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

// removeLike deletes the like and lowers like_count only when a row was removed.
func (r *PostRepository) removeLike(ctx context.Context, tx *sql.Tx, postID, userID string) error {
	res, err := tx.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM likes WHERE post_id = ? AND user_id = ?`), postID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET like_count = CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END WHERE id = ?`),
		postID); err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

// IsLiked reports whether userID likes postID
func (r *PostRepository) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT COUNT(*) FROM likes WHERE post_id = ? AND user_id = ?`),
		postID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to get like status: %w", err)
	}
	return n > 0, nil
}

func requireRow(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
