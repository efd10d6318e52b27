package domain

import (
	"context"
	"fmt"
	"time"
)

// FeedPageSize is the number of entries served per feed page.
const FeedPageSize = 24

// FeedEntry is a denormalized feed record: an image joined with its owner and
// the image's like total at the time the page was populated or last patched.
type FeedEntry struct {
	ImageID     int64     `json:"image_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"created_at"`
	TotalLikes  int64     `json:"total_likes"`
	LikeSeq     int64     `json:"like_seq"`
}

// NewFeedEntry joins an image with its owner and like total.
func NewFeedEntry(img Image, owner User, total LikeTotal) FeedEntry {
	return FeedEntry{
		ImageID:     img.ID,
		URL:         img.URL,
		Title:       img.Title,
		Description: img.Description,
		UserID:      img.UserID,
		UserName:    owner.Handle,
		Avatar:      owner.Avatar,
		CreatedAt:   img.CreatedAt,
		TotalLikes:  total.Count,
		LikeSeq:     total.Seq,
	}
}

// PageKey identifies a cached feed page. Generation changes whenever the
// recency order shifts, which makes every page of older generations unreachable.
type PageKey struct {
	Generation int64
	Offset     int64
	Limit      int64
}

func (k PageKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.Generation, k.Offset, k.Limit)
}

// FeedPageCache is the storage backend of cached feed pages.
type FeedPageCache interface {
	// Generation returns the current page generation.
	Generation(ctx context.Context) (int64, error)

	// GetPage returns ErrCacheMiss if the page is not cached.
	GetPage(ctx context.Context, key PageKey) ([]FeedEntry, error)

	// SetPage stores a fully assembled page and indexes each of its images.
	// Totals newer than the assembled ones that were applied while the page
	// was being populated are merged in; the stored entries are returned.
	// A page whose generation is no longer current is returned but not stored.
	SetPage(ctx context.Context, key PageKey, entries []FeedEntry) ([]FeedEntry, error)

	// PatchLikes rewrites the total of the image in every cached page holding it,
	// unless the cached entry already carries a newer or equal Seq.
	PatchLikes(ctx context.Context, total LikeTotal) error

	// Flush moves to a new generation and drops every cached page.
	Flush(ctx context.Context) (int64, error)

	// DeletePage evicts one page.
	DeletePage(ctx context.Context, key PageKey) error

	// PageKeys lists the cached pages of a generation.
	PageKeys(ctx context.Context, generation int64) ([]PageKey, error)
}

// LikeObserver is notified synchronously after every successful like mutation.
type LikeObserver interface {
	ApplyLikeTotal(ctx context.Context, total LikeTotal) error
}

// FeedInvalidator drops feed pages whose window shifted.
type FeedInvalidator interface {
	Flush(ctx context.Context) error
}

// FeedUsecase serves the paginated feed.
type FeedUsecase interface {
	ListFeed(ctx context.Context, offset int64) ([]FeedEntry, error)
}
