package like

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

// Service is the like ledger. Totals are always recomputed by the store, never
// kept as a counter here.
type Service struct {
	likeRepo  domain.LikeRepository
	imageRepo domain.ImageRepository
	bloomRepo domain.BloomRepository
	publisher domain.EventPublisher

	mu        sync.RWMutex
	observers []domain.LikeObserver
}

var _ domain.LikeLedger = (*Service)(nil)

// NewService will create a new like ledger. bloomRepo and publisher may be nil.
// imageRepo confirms images the bloom filter does not know; without it the
// filter is not consulted.
func NewService(l domain.LikeRepository, i domain.ImageRepository, b domain.BloomRepository, p domain.EventPublisher) *Service {
	return &Service{
		likeRepo:  l,
		imageRepo: i,
		bloomRepo: b,
		publisher: p,
	}
}

// Subscribe registers o to receive the recomputed total after every successful
// mutation, before the mutation returns.
func (s *Service) Subscribe(o domain.LikeObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) AddLike(ctx context.Context, userID, imageID int64) (domain.Like, domain.LikeTotal, error) {
	if err := s.mustExist(ctx, imageID); err != nil {
		return domain.Like{}, domain.LikeTotal{}, err
	}

	like := domain.Like{
		ID:      uuid.NewString(),
		UserID:  userID,
		ImageID: imageID,
	}
	total, err := s.likeRepo.Create(ctx, &like)
	if err != nil {
		return domain.Like{}, domain.LikeTotal{}, translateError(err)
	}

	s.notify(ctx, total)
	s.publish(ctx, like, total, domain.ActionLike)
	return like, total, nil
}

func (s *Service) RemoveLike(ctx context.Context, likeID string) (domain.Like, domain.LikeTotal, error) {
	if likeID == "" {
		return domain.Like{}, domain.LikeTotal{}, domain.ErrBadParamInput
	}

	removed, total, err := s.likeRepo.DeleteByID(ctx, likeID)
	if err != nil {
		return domain.Like{}, domain.LikeTotal{}, translateError(err)
	}

	s.notify(ctx, total)
	s.publish(ctx, removed, total, domain.ActionUnlike)
	return removed, total, nil
}

func (s *Service) RemoveLikeAs(ctx context.Context, userID int64, likeID string) (domain.Like, domain.LikeTotal, error) {
	if likeID == "" {
		return domain.Like{}, domain.LikeTotal{}, domain.ErrBadParamInput
	}

	// like IDs are never reused, so the owner cannot change before the delete
	like, ok, err := s.likeRepo.FindByID(ctx, likeID)
	if err != nil {
		return domain.Like{}, domain.LikeTotal{}, translateError(err)
	}
	if !ok || like.UserID != userID {
		return domain.Like{}, domain.LikeTotal{}, domain.ErrNotFound
	}
	return s.RemoveLike(ctx, likeID)
}

func (s *Service) RemoveLikeByPair(ctx context.Context, userID, imageID int64) (domain.Like, domain.LikeTotal, error) {
	like, ok, err := s.likeRepo.FindByPair(ctx, userID, imageID)
	if err != nil {
		return domain.Like{}, domain.LikeTotal{}, translateError(err)
	}
	if !ok {
		return domain.Like{}, domain.LikeTotal{}, domain.ErrNotFound
	}
	return s.RemoveLike(ctx, like.ID)
}

func (s *Service) TotalLikesFor(ctx context.Context, imageID int64) (int64, error) {
	total, err := s.likeRepo.CountForImage(ctx, imageID)
	if err != nil {
		return 0, translateError(err)
	}
	return total.Count, nil
}

func (s *Service) TotalsFor(ctx context.Context, imageIDs []int64) (map[int64]domain.LikeTotal, error) {
	totals, err := s.likeRepo.CountForImages(ctx, imageIDs)
	if err != nil {
		return nil, translateError(err)
	}
	return totals, nil
}

// mustExist rejects images the store does not have. A bloom miss is only a
// hint: the filter can lag behind the store, so the store decides.
func (s *Service) mustExist(ctx context.Context, imageID int64) error {
	if s.bloomRepo == nil || s.imageRepo == nil {
		return nil
	}
	exists, err := s.bloomRepo.Exists(ctx, imageID)
	if err != nil {
		logrus.Warnf("bloom filter check failed for image %d: %v", imageID, err)
		return nil
	}
	if exists {
		return nil
	}

	_, ok, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return translateError(err)
	}
	if !ok {
		return domain.ErrNotFound
	}

	logrus.Infof("image %d missing from bloom filter, adding it back", imageID)
	if err := s.bloomRepo.Add(ctx, imageID); err != nil {
		logrus.Warnf("failed to add image %d to bloom filter: %v", imageID, err)
	}
	return nil
}

// notify runs after the mutation committed, so a caller that goes away must not
// cut the cache update short.
func (s *Service) notify(ctx context.Context, total domain.LikeTotal) {
	ctx = context.WithoutCancel(ctx)

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, o := range observers {
		if err := o.ApplyLikeTotal(ctx, total); err != nil {
			logrus.WithFields(logrus.Fields{
				"image_id": total.ImageID,
				"seq":      total.Seq,
			}).Errorf("failed to apply like total: %v", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, like domain.Like, total domain.LikeTotal, action domain.LikeAction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLikeChanged(ctx, like, total, action); err != nil {
		logrus.Warnf("failed to publish like %s event for %s: %v", action, like.ID, err)
	}
}

func translateError(err error) error {
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Constraint {
		case domain.ConstraintLikeUnique:
			return domain.ErrAlreadyLiked
		case domain.ConstraintLikeUser, domain.ConstraintLikeImage:
			return domain.ErrNotFound
		default:
			return domain.ErrConflict
		}
	}

	logrus.Errorf("like store error: %v", err)
	return fmt.Errorf("%w: %v", domain.ErrInternalServerError, err)
}
