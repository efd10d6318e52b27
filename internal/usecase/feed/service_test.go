package feed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/memory"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/usecase/feed"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/usecase/like"
)

type mockPages struct {
	mock.Mock
}

func (m *mockPages) GetPage(ctx context.Context, offset, limit int64) ([]domain.FeedEntry, error) {
	args := m.Called(ctx, offset, limit)
	entries, _ := args.Get(0).([]domain.FeedEntry)
	return entries, args.Error(1)
}

func TestListFeed_UsesFixedPageSize(t *testing.T) {
	pages := new(mockPages)
	want := []domain.FeedEntry{{ImageID: 1}}
	pages.On("GetPage", mock.Anything, int64(48), int64(domain.FeedPageSize)).Return(want, nil).Once()

	got, err := feed.NewService(pages).ListFeed(context.Background(), 48)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	pages.AssertExpectations(t)
}

func TestListFeed_NegativeOffset(t *testing.T) {
	pages := new(mockPages)
	_, err := feed.NewService(pages).ListFeed(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrBadParamInput)
	pages.AssertNotCalled(t, "GetPage", mock.Anything, mock.Anything, mock.Anything)
}

func TestListFeed_FailureIsUnavailable(t *testing.T) {
	pages := new(mockPages)
	pages.On("GetPage", mock.Anything, int64(0), int64(domain.FeedPageSize)).
		Return(nil, errors.New("connection refused")).Once()

	got, err := feed.NewService(pages).ListFeed(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.Nil(t, got)
}

type stack struct {
	users  domain.UserRepository
	images domain.ImageRepository
	ledger *like.Service
	cache  *repository.FeedCache
	svc    *feed.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := memory.NewDB()
	s := &stack{
		users:  memory.NewUserRepository(db),
		images: memory.NewImageRepository(db),
	}
	s.ledger = like.NewService(memory.NewLikeRepository(db), s.images, nil, nil)
	s.cache = repository.NewFeedCache(memory.NewFeedCache(time.Minute), s.images, s.users, s.ledger, nil, time.Second)
	s.ledger.Subscribe(s.cache)
	s.svc = feed.NewService(s.cache)
	return s
}

func TestListFeed_PagesHundredImagesWithoutRepeats(t *testing.T) {
	s := newStack(t)
	owner := domain.User{Handle: "owner", Email: faker.Email()}
	require.NoError(t, s.users.Insert(context.Background(), &owner))
	for i := range 100 {
		img := domain.Image{URL: faker.URL(), Title: fmt.Sprintf("img-%03d", i), UserID: owner.ID}
		require.NoError(t, s.images.Store(context.Background(), &img))
	}

	first, err := s.svc.ListFeed(context.Background(), 0)
	require.NoError(t, err)
	second, err := s.svc.ListFeed(context.Background(), domain.FeedPageSize)
	require.NoError(t, err)
	require.Len(t, first, domain.FeedPageSize)
	require.Len(t, second, domain.FeedPageSize)

	seen := make(map[int64]bool)
	for _, e := range append(first, second...) {
		assert.False(t, seen[e.ImageID], "image %d repeated", e.ImageID)
		seen[e.ImageID] = true
	}

	last, err := s.svc.ListFeed(context.Background(), 96)
	require.NoError(t, err)
	assert.Len(t, last, 4)

	past, err := s.svc.ListFeed(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestListFeed_ReadYourWrites(t *testing.T) {
	s := newStack(t)
	hello := domain.User{Handle: "hello", Email: faker.Email()}
	require.NoError(t, s.users.Insert(context.Background(), &hello))
	test1 := domain.Image{URL: faker.URL(), Title: "test1", UserID: hello.ID}
	require.NoError(t, s.images.Store(context.Background(), &test1))

	page, err := s.svc.ListFeed(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Zero(t, page[0].TotalLikes)

	l, _, err := s.ledger.AddLike(context.Background(), hello.ID, test1.ID)
	require.NoError(t, err)

	page, err = s.svc.ListFeed(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page[0].TotalLikes)

	_, _, err = s.ledger.RemoveLike(context.Background(), l.ID)
	require.NoError(t, err)

	page, err = s.svc.ListFeed(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, page[0].TotalLikes)
}
