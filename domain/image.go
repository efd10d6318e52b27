package domain

import (
	"context"
	"time"
)

// Image is representing a user-submitted image in the feed
type Image struct {
	ID          int64     // Unique identifier
	URL         string    // Location of the stored image
	Title       string    // Image title
	Description string    // Free text description
	UserID      int64     // Owner reference
	CreatedAt   time.Time // Creation timestamp, defines feed order
	LikeSeq     int64     // Version bumped by every like mutation on this image
}

// ImageRepository defines the contract for image data persistence
type ImageRepository interface {
	// Store creates a new image and backfills ID and CreatedAt.
	Store(ctx context.Context, img *Image) error

	// GetByID retrieves an image. ok is false if it doesn't exist.
	GetByID(ctx context.Context, id int64) (img Image, ok bool, err error)

	// FindByTitle retrieves an image by its title. ok is false if it doesn't exist.
	FindByTitle(ctx context.Context, title string) (img Image, ok bool, err error)

	// ListByRecency returns at most limit images ordered newest first, skipping offset rows.
	ListByRecency(ctx context.Context, offset, limit int64) ([]Image, error)

	// FetchIDs returns image IDs greater than cursor in ascending order.
	FetchIDs(ctx context.Context, cursor, limit int64) ([]int64, error)
}

// ImageUsecase is consumed by the transport layer to create images.
type ImageUsecase interface {
	Create(ctx context.Context, img *Image) error
}
