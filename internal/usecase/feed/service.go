package feed

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

// PageReader reads one assembled feed page.
type PageReader interface {
	GetPage(ctx context.Context, offset, limit int64) ([]domain.FeedEntry, error)
}

type Service struct {
	pages PageReader
}

var _ domain.FeedUsecase = (*Service)(nil)

// NewService will create a new feed service object
func NewService(p PageReader) *Service {
	return &Service{pages: p}
}

// ListFeed returns up to domain.FeedPageSize entries starting at offset, newest
// image first. Any failure below is reported as domain.ErrFeedUnavailable.
func (s *Service) ListFeed(ctx context.Context, offset int64) ([]domain.FeedEntry, error) {
	if offset < 0 {
		return nil, domain.ErrBadParamInput
	}

	entries, err := s.pages.GetPage(ctx, offset, domain.FeedPageSize)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"offset": offset,
		}).Errorf("failed to list feed: %v", err)
		return nil, domain.ErrFeedUnavailable
	}
	return entries, nil
}
