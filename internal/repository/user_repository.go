package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/models"
)

const userColumns = `id, username, email, password_hash, phone, profile_image_url, is_active, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts u, assigning its ID and timestamps. A taken username or
// email yields ErrConflict naming the field.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	var existingUsername string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT username FROM users WHERE username = ? OR email = ?`),
		u.Username, strings.ToLower(u.Email),
	).Scan(&existingUsername)
	switch {
	case err == nil && existingUsername == u.Username:
		return fmt.Errorf("username: %w", ErrConflict)
	case err == nil:
		return fmt.Errorf("email: %w", ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	now := time.Now().UTC()
	u.ID = newID()
	u.Email = strings.ToLower(u.Email)
	u.IsActive = true
	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO users (id, username, email, password_hash, phone, profile_image_url, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.Email, u.PasswordHash, u.Phone, u.ProfileImageURL, u.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.CreatedAt = models.FormatTimestamp(now)
	u.UpdatedAt = u.CreatedAt
	return nil
}

// FindByLogin looks a user up by username or email
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`),
		identifier, strings.ToLower(identifier),
	)
	return r.scanOne(row, identifier)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return r.scanOne(row, id)
}

// UpdateUser applies the non-nil fields of req and returns the stored user
func (r *UserRepository) UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	var sets []string
	var args []any
	if req.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, strings.TrimSpace(*req.Phone))
	}
	if req.ProfileImageURL != nil {
		sets = append(sets, "profile_image_url = ?")
		args = append(args, strings.TrimSpace(*req.ProfileImageURL))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := requireRow(result, "user", id); err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, id)
}

func (r *UserRepository) scanOne(row rowScanner, key string) (*models.User, error) {
	var u models.User
	var createdAt, updatedAt time.Time
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Phone, &u.ProfileImageURL,
		&u.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = models.FormatTimestamp(createdAt)
	u.UpdatedAt = models.FormatTimestamp(updatedAt)
	return &u, nil
}
