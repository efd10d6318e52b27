package domain

import (
	"context"
	"time"
)

// Like is representing a like record. At most one exists per (UserID, ImageID).
type Like struct {
	ID        string // Canonical identifier, used to remove the like
	UserID    int64
	ImageID   int64
	CreatedAt time.Time
}

// LikeTotal is the aggregate like count of an image together with the image's
// LikeSeq read in the same snapshot. A higher Seq always carries the fresher Count.
type LikeTotal struct {
	ImageID int64
	Count   int64
	Seq     int64
}

// Newer reports whether t supersedes a total observed at seq.
func (t LikeTotal) Newer(seq int64) bool {
	return t.Seq > seq
}

// LikeRepository defines the contract for like persistence.
// Conflicting writes are reported as *ConflictError.
type LikeRepository interface {
	// Create inserts the like and returns the recomputed total of its image.
	// Returns ErrNotFound if the image does not exist.
	Create(ctx context.Context, l *Like) (LikeTotal, error)

	// DeleteByID removes the like and returns it with the recomputed total of its image.
	// Returns ErrNotFound if the like does not exist.
	DeleteByID(ctx context.Context, id string) (Like, LikeTotal, error)

	// FindByID retrieves a like. ok is false if it doesn't exist.
	FindByID(ctx context.Context, id string) (l Like, ok bool, err error)

	// FindByPair retrieves the like of a user on an image. ok is false if it doesn't exist.
	FindByPair(ctx context.Context, userID, imageID int64) (l Like, ok bool, err error)

	// CountForImage recomputes the total of one image.
	CountForImage(ctx context.Context, imageID int64) (LikeTotal, error)

	// CountForImages recomputes the totals of several images. Images without likes
	// are present with Count 0.
	CountForImages(ctx context.Context, imageIDs []int64) (map[int64]LikeTotal, error)
}

// LikeLedger enforces one like per (user, image) and computes totals.
type LikeLedger interface {
	AddLike(ctx context.Context, userID, imageID int64) (Like, LikeTotal, error)
	RemoveLike(ctx context.Context, likeID string) (Like, LikeTotal, error)
	// RemoveLikeAs removes the like only if userID owns it. Likes of other users
	// are reported as ErrNotFound.
	RemoveLikeAs(ctx context.Context, userID int64, likeID string) (Like, LikeTotal, error)
	RemoveLikeByPair(ctx context.Context, userID, imageID int64) (Like, LikeTotal, error)
	TotalLikesFor(ctx context.Context, imageID int64) (int64, error)
	TotalsFor(ctx context.Context, imageIDs []int64) (map[int64]LikeTotal, error)
}
