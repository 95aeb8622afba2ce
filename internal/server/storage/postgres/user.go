package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iudanet/pkceauth/internal/models"
	"github.com/iudanet/pkceauth/internal/server/storage"
)

// Compile-time check that Storage implements UserStorage
var _ storage.UserStorage = (*Storage)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

const userColumns = `id, username, password_hash, refresh_token_hash, created_at, updated_at`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.RefreshTokenHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, userID)
}

// UpdateRefreshTokenHash overwrites stored refresh token hash
func (s *Storage) UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = $1, updated_at = $2 WHERE id::text = $3`,
		hash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update refresh token hash: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// RotateRefreshTokenHash atomically replaces expectedHash with newHash.
// A single conditional UPDATE takes the row lock, so concurrent callers
// presenting the same hash are serialized and only the first one matches.
func (s *Storage) RotateRefreshTokenHash(ctx context.Context, userID, expectedHash, newHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = $1, updated_at = $2
		 WHERE id::text = $3 AND refresh_token_hash = $4`,
		newHash, time.Now().UTC(), userID, expectedHash,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token hash: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrRefreshTokenMismatch
	}

	return nil
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var refreshHash sql.NullString

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&refreshHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if refreshHash.Valid {
		user.RefreshTokenHash = &refreshHash.String
	}

	return user, nil
}
