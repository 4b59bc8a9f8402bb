package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/models"
)

type CommentRepository struct {
	db *database.DB
}

func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateComment stores a comment and bumps the post's comment count in one transaction
func (r *CommentRepository) CreateComment(ctx context.Context, c *models.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET comment_count = comment_count + 1 WHERE id = ? AND status <> ?`),
		c.PostID, models.StatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}
	if err := requireRow(result, "post", c.PostID); err != nil {
		return err
	}

	now := time.Now().UTC()
	c.ID = newID()
	if c.Author == "" {
		c.Author = models.DefaultAuthor
	}
	_, err = tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO comments (id, post_id, author, author_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.PostID, c.Author, c.AuthorID, c.Content, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.CreatedAt = models.FormatTimestamp(now)
	return nil
}

// ListComments returns a post's comments, oldest first
func (r *CommentRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, post_id, author, author_id, content, created_at
		 FROM comments WHERE post_id = ? ORDER BY created_at ASC`),
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT id, post_id, author, author_id, content, created_at FROM comments WHERE id = ?`), id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment and decrements the post's comment count
func (r *CommentRepository) DeleteComment(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var postID string
	err = tx.QueryRowContext(ctx, r.db.Rebind(`SELECT post_id FROM comments WHERE id = ?`), id).Scan(&postID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}

	if _, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM comments WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	_, err = tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE posts SET comment_count = CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END WHERE id = ?`),
		postID)
	if err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	var createdAt time.Time
	if err := row.Scan(&c.ID, &c.PostID, &c.Author, &c.AuthorID, &c.Content, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = models.FormatTimestamp(createdAt)
	return &c, nil
}
