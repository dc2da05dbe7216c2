package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linguachat-backend/internal/domain"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// UserRepository handles user persistence
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	user_id, email, full_name, password_hash, avatar_url,
	preferred_language, preferred_tone, is_active, is_online,
	created_at, updated_at, last_seen
`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.PreferredLanguage,
		&user.PreferredTone,
		&user.IsActive,
		&user.IsOnline,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			user_id, email, full_name, password_hash, avatar_url,
			preferred_language, preferred_tone, is_active, is_online,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		user.UserID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.AvatarURL,
		user.PreferredLanguage,
		user.PreferredTone,
		user.IsActive,
		user.IsOnline,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, userID))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// EmailExists checks whether an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Update persists mutable profile fields
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET full_name = $2,
		    avatar_url = $3,
		    preferred_language = $4,
		    preferred_tone = $5,
		    updated_at = $6
		WHERE user_id = $1
	`

	cmdTag, err := r.pool.Exec(ctx, query,
		user.UserID,
		user.FullName,
		user.AvatarURL,
		user.PreferredLanguage,
		user.PreferredTone,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOnlineStatus writes the derived online flag back to the row.
// Going offline also records the last-seen timestamp.
func (r *UserRepository) UpdateOnlineStatus(ctx context.Context, userID uuid.UUID, online bool) error {
	var err error
	if online {
		_, err = r.pool.Exec(ctx,
			`UPDATE users SET is_online = TRUE, updated_at = NOW() WHERE user_id = $1`,
			userID,
		)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE users SET is_online = FALSE, last_seen = NOW(), updated_at = NOW() WHERE user_id = $1`,
			userID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update online status: %w", err)
	}
	return nil
}

// Delete removes a user; messages and participant rows cascade
func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
