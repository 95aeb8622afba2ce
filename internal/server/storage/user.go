package storage

import (
	"context"

	"github.com/iudanet/pkceauth/internal/models"
)

// UserStorage defines interface for user record persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdateRefreshTokenHash overwrites stored refresh token hash.
	// nil clears the hash (logout).
	// Returns ErrUserNotFound if user doesn't exist
	UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error

	// RotateRefreshTokenHash atomically replaces expectedHash with newHash.
	// Returns ErrRefreshTokenMismatch if the stored hash is not expectedHash
	// (including NULL), so of two concurrent rotations only one succeeds.
	RotateRefreshTokenHash(ctx context.Context, userID, expectedHash, newHash string) error
}
