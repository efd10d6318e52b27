package domain

import (
	"context"
	"time"
)

// User represents an account that owns images and likes them.
// Accounts are registered by an external service; this module only reads them.
type User struct {
	ID           int64     // Unique identifier
	Handle       string    // Public handle (unique)
	Email        string    // Contact email
	PasswordHash string    // Credential hash, never serialized to clients
	Avatar       string    // Avatar URL
	CreatedAt    time.Time // Account creation timestamp
}

// UserRepository defines the contract for user data persistence.
type UserRepository interface {
	// Insert creates a new user.
	// Backfills the ID in the provided User object upon success.
	Insert(ctx context.Context, u *User) error

	// GetByID retrieves a user by ID. ok is false if the user doesn't exist.
	GetByID(ctx context.Context, id int64) (u User, ok bool, err error)

	// FindByHandle retrieves a user by handle. ok is false if the user doesn't exist.
	FindByHandle(ctx context.Context, handle string) (u User, ok bool, err error)

	// GetByIDs retrieves the users that exist among the given IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]User, error)
}
