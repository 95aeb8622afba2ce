package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRefreshTokenMismatch indicates that stored refresh token hash
	// differs from the expected one (rotated, revoked or never set)
	ErrRefreshTokenMismatch = errors.New("refresh token hash mismatch")
)
