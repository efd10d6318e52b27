package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/metrics"
)

// LikeTotaler computes the like totals of a batch of images.
type LikeTotaler interface {
	TotalsFor(ctx context.Context, imageIDs []int64) (map[int64]domain.LikeTotal, error)
}

// sweeper is implemented by backends that keep state needing periodic pruning.
type sweeper interface {
	Sweep(ctx context.Context) error
}

// FeedCache 协调层，协调页缓存和数据库
type FeedCache struct {
	pages           domain.FeedPageCache
	images          domain.ImageRepository
	users           domain.UserRepository
	totals          LikeTotaler
	recorder        metrics.FeedRecorder
	populateGroup   singleflight.Group
	populateTimeout time.Duration
}

var (
	_ domain.LikeObserver    = (*FeedCache)(nil)
	_ domain.FeedInvalidator = (*FeedCache)(nil)
)

// NewFeedCache 创建协调层
func NewFeedCache(
	pages domain.FeedPageCache,
	images domain.ImageRepository,
	users domain.UserRepository,
	totals LikeTotaler,
	recorder metrics.FeedRecorder,
	populateTimeout time.Duration,
) *FeedCache {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &FeedCache{
		pages:           pages,
		images:          images,
		users:           users,
		totals:          totals,
		recorder:        recorder,
		populateTimeout: populateTimeout,
	}
}

// GetPage returns the page at offset, populating it from the store on a miss.
// Concurrent misses on the same page share one population, which outlives the
// cancellation of any single caller.
func (r *FeedCache) GetPage(ctx context.Context, offset, limit int64) ([]domain.FeedEntry, error) {
	if offset < 0 {
		return nil, domain.ErrBadParamInput
	}
	PageVerify(&limit)

	gen, err := r.pages.Generation(ctx)
	if err != nil {
		// 缓存不可用，直接查库
		logrus.Warnf("failed to read feed generation: %v", err)
		return r.load(ctx, offset, limit)
	}

	key := domain.PageKey{Generation: gen, Offset: offset, Limit: limit}
	entries, err := r.pages.GetPage(ctx, key)
	if err == nil {
		r.recorder.RecordCacheHit()
		return entries, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		logrus.Warnf("feed cache get error: %v", err)
	}
	r.recorder.RecordCacheMiss()

	ch := r.populateGroup.DoChan(key.String(), func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.populateTimeout)
		defer cancel()

		start := time.Now()
		entries, err := r.populate(pctx, key)
		r.recorder.RecordPopulate(time.Since(start), err)
		return entries, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]domain.FeedEntry)
		return append([]domain.FeedEntry(nil), shared...), nil
	}
}

// ApplyLikeTotal patches the total into every cached page holding the image.
// If the patch cannot be applied the whole cache is flushed instead, so no page
// keeps serving the old total.
func (r *FeedCache) ApplyLikeTotal(ctx context.Context, total domain.LikeTotal) error {
	err := r.pages.PatchLikes(ctx, total)
	r.recorder.RecordPatch(err)
	if err == nil {
		return nil
	}

	logrus.Warnf("failed to patch like total of image %d, flushing feed cache: %v", total.ImageID, err)
	return r.Flush(ctx)
}

// Flush drops every cached page.
func (r *FeedCache) Flush(ctx context.Context) error {
	gen, err := r.pages.Flush(ctx)
	r.recorder.RecordFlush(err)
	if err != nil {
		return err
	}
	logrus.Debugf("feed cache moved to generation %d", gen)
	return nil
}

// Reconcile compares every cached page of the current generation with a fresh
// assembly from the store and evicts pages that differ. It returns the number
// of evicted pages.
func (r *FeedCache) Reconcile(ctx context.Context) (int, error) {
	if s, ok := r.pages.(sweeper); ok {
		if err := s.Sweep(ctx); err != nil {
			logrus.Warnf("failed to sweep feed cache: %v", err)
		}
	}

	gen, err := r.pages.Generation(ctx)
	if err != nil {
		return 0, err
	}
	keys, err := r.pages.PageKeys(ctx, gen)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}

		cached, err := r.pages.GetPage(ctx, key)
		if errors.Is(err, domain.ErrCacheMiss) {
			continue
		} else if err != nil {
			return evicted, err
		}

		fresh, err := r.load(ctx, key.Offset, key.Limit)
		if err != nil {
			return evicted, err
		}

		if samePage(cached, fresh) {
			continue
		}
		if err := r.pages.DeletePage(ctx, key); err != nil {
			return evicted, err
		}
		evicted++
	}

	r.recorder.RecordReconcileEvicted(evicted)
	return evicted, nil
}

// populate assembles the page from the store and caches it. A page that cannot
// be cached is still served.
func (r *FeedCache) populate(ctx context.Context, key domain.PageKey) ([]domain.FeedEntry, error) {
	entries, err := r.load(ctx, key.Offset, key.Limit)
	if err != nil {
		return nil, err
	}

	stored, err := r.pages.SetPage(ctx, key, entries)
	if err != nil {
		logrus.Warnf("failed to set feed page %s: %v", key, err)
		return entries, nil
	}
	return stored, nil
}

// load reads one window of images and joins owners and like totals.
func (r *FeedCache) load(ctx context.Context, offset, limit int64) ([]domain.FeedEntry, error) {
	images, err := r.images.ListByRecency(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return []domain.FeedEntry{}, nil
	}

	imageIDs := make([]int64, len(images))
	userIDs := make([]int64, 0, len(images))
	seen := make(map[int64]bool, len(images))
	for i, img := range images {
		imageIDs[i] = img.ID
		if !seen[img.UserID] {
			seen[img.UserID] = true
			userIDs = append(userIDs, img.UserID)
		}
	}

	var (
		owners []domain.User
		totals map[int64]domain.LikeTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owners, err = r.users.GetByIDs(gctx, userIDs)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = r.totals.TotalsFor(gctx, imageIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ownerMap := make(map[int64]domain.User, len(owners))
	for _, u := range owners {
		ownerMap[u.ID] = u
	}

	entries := make([]domain.FeedEntry, 0, len(images))
	for _, img := range images {
		owner, ok := ownerMap[img.UserID]
		if !ok {
			logrus.Warnf("owner %d of image %d not found", img.UserID, img.ID)
		}
		total, ok := totals[img.ID]
		if !ok {
			total = domain.LikeTotal{ImageID: img.ID}
		}
		entries = append(entries, domain.NewFeedEntry(img, owner, total))
	}
	return entries, nil
}

func samePage(a, b []domain.FeedEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ImageID != b[i].ImageID || a[i].TotalLikes != b[i].TotalLikes {
			return false
		}
	}
	return true
}
