package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your Item already exist")
	// ErrAlreadyLiked will throw if the user already liked the image
	ErrAlreadyLiked = errors.New("image already liked by this user")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
	// ErrFeedUnavailable will throw if the feed page cannot be assembled
	ErrFeedUnavailable = errors.New("feed is temporarily unavailable")
	// ErrUnauthorized will throw if the caller identity is missing or invalid
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCacheMiss means the key is absent in cache, the caller should fall back to the store
	ErrCacheMiss = errors.New("cache miss")
)

// Constraint names reported by the store on conflicting writes.
const (
	ConstraintLikeUnique = "uniq_likes_user_image"
	ConstraintLikeUser   = "fk_likes_user"
	ConstraintLikeImage  = "fk_likes_image"
	ConstraintUserHandle = "uniq_users_handle"
	ConstraintImageTitle = "uniq_images_title"
	ConstraintImageUser  = "fk_images_user"
)

// ConflictError is returned by the store when a write violates a constraint.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("constraint %s violated", e.Constraint)
	}
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is makes every ConflictError match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
