package image

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

type Service struct {
	imageRepo   domain.ImageRepository
	bloomRepo   domain.BloomRepository
	invalidator domain.FeedInvalidator
	publisher   domain.EventPublisher
}

var _ domain.ImageUsecase = (*Service)(nil)

// NewService will create a new image service object. bloomRepo and publisher may be nil.
func NewService(i domain.ImageRepository, b domain.BloomRepository, f domain.FeedInvalidator, p domain.EventPublisher) *Service {
	return &Service{
		imageRepo:   i,
		bloomRepo:   b,
		invalidator: f,
		publisher:   p,
	}
}

// Create stores a new image at the head of the feed. Every cached page shifts by
// one position, so the feed cache is flushed.
func (s *Service) Create(ctx context.Context, img *domain.Image) error {
	img.Title = strings.TrimSpace(img.Title)
	if img.Title == "" || img.UserID <= 0 {
		return domain.ErrBadParamInput
	}

	_, exists, err := s.imageRepo.FindByTitle(ctx, img.Title)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrConflict
	}

	if err := s.imageRepo.Store(ctx, img); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.Constraint == domain.ConstraintImageUser {
			return domain.ErrNotFound
		}
		return err
	}

	if s.bloomRepo != nil {
		if err := s.bloomRepo.Add(ctx, img.ID); err != nil {
			logrus.Warnf("failed to add image %d to bloom filter: %v", img.ID, err)
		}
	}

	s.flush(context.WithoutCancel(ctx), img.ID)

	if s.publisher != nil {
		if err := s.publisher.PublishImageCreated(ctx, *img); err != nil {
			logrus.Warnf("failed to publish image.created for %d: %v", img.ID, err)
		}
	}
	return nil
}

// flush tries the invalidation twice. The image is already stored, so a cache
// that stays unreachable is logged rather than failing the create.
func (s *Service) flush(ctx context.Context, imageID int64) {
	err := s.invalidator.Flush(ctx)
	if err == nil {
		return
	}
	logrus.Warnf("failed to flush feed cache after image %d, retrying: %v", imageID, err)

	if err := s.invalidator.Flush(ctx); err != nil {
		logrus.Errorf("failed to flush feed cache after image %d: %v", imageID, err)
	}
}

// InitBloomFilter loads every stored image ID into the bloom filter.
func (s *Service) InitBloomFilter(ctx context.Context) error {
	if s.bloomRepo == nil {
		return nil
	}

	const batchSize = 1000
	var cursor int64
	for {
		ids, err := s.imageRepo.FetchIDs(ctx, cursor, batchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := s.bloomRepo.BulkAdd(ctx, ids); err != nil {
			return err
		}
		cursor = ids[len(ids)-1]
		if len(ids) < batchSize {
			return nil
		}
	}
}
