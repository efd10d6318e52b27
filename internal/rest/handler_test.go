package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/middleware"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/response"
)

const testSecret = "test-secret"

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) ListFeed(ctx context.Context, offset int64) ([]domain.FeedEntry, error) {
	args := m.Called(ctx, offset)
	entries, _ := args.Get(0).([]domain.FeedEntry)
	return entries, args.Error(1)
}

type mockImages struct {
	mock.Mock
}

func (m *mockImages) Create(ctx context.Context, img *domain.Image) error {
	args := m.Called(ctx, img)
	if args.Error(0) == nil {
		img.ID = 10
		img.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return args.Error(0)
}

type mockLikes struct {
	mock.Mock
}

func (m *mockLikes) AddLike(ctx context.Context, userID, imageID int64) (domain.Like, domain.LikeTotal, error) {
	args := m.Called(ctx, userID, imageID)
	return args.Get(0).(domain.Like), args.Get(1).(domain.LikeTotal), args.Error(2)
}

func (m *mockLikes) RemoveLike(ctx context.Context, likeID string) (domain.Like, domain.LikeTotal, error) {
	args := m.Called(ctx, likeID)
	return args.Get(0).(domain.Like), args.Get(1).(domain.LikeTotal), args.Error(2)
}

func (m *mockLikes) RemoveLikeAs(ctx context.Context, userID int64, likeID string) (domain.Like, domain.LikeTotal, error) {
	args := m.Called(ctx, userID, likeID)
	return args.Get(0).(domain.Like), args.Get(1).(domain.LikeTotal), args.Error(2)
}

func (m *mockLikes) RemoveLikeByPair(ctx context.Context, userID, imageID int64) (domain.Like, domain.LikeTotal, error) {
	args := m.Called(ctx, userID, imageID)
	return args.Get(0).(domain.Like), args.Get(1).(domain.LikeTotal), args.Error(2)
}

func (m *mockLikes) TotalLikesFor(ctx context.Context, imageID int64) (int64, error) {
	args := m.Called(ctx, imageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLikes) TotalsFor(ctx context.Context, imageIDs []int64) (map[int64]domain.LikeTotal, error) {
	args := m.Called(ctx, imageIDs)
	totals, _ := args.Get(0).(map[int64]domain.LikeTotal)
	return totals, args.Error(1)
}

type fixture struct {
	router *gin.Engine
	feed   *mockFeed
	images *mockImages
	likes  *mockLikes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		router: gin.New(),
		feed:   new(mockFeed),
		images: new(mockImages),
		likes:  new(mockLikes),
	}
	rest.RegisterRoutes(f.router, rest.Handlers{
		Feed:  rest.NewFeedHandler(f.feed),
		Image: rest.NewImageHandler(f.images),
		Like:  rest.NewLikeHandler(f.likes),
		RPC:   rest.NewRPCHandler(f.images, f.likes, f.feed),
	}, middleware.AuthMiddleware(testSecret), middleware.OptionalAuth(testSecret))
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := middleware.GenerateToken(testSecret, userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListFeed(t *testing.T) {
	f := newFixture(t)
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	f.feed.On("ListFeed", mock.Anything, int64(24)).Return([]domain.FeedEntry{
		{ImageID: 1, Title: "hello", UserName: "test1", CreatedAt: created, TotalLikes: 3},
	}, nil).Once()

	rec := f.do(t, http.MethodGet, "/feed?offset=24", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []response.FeedEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "test1", got[0].UserName)
	assert.Equal(t, int64(3), got[0].TotalLikes)
	assert.Equal(t, "2024-05-06 07:08:09", got[0].CreatedAt)
	f.feed.AssertExpectations(t)
}

func TestListFeed_DefaultsToFirstPage(t *testing.T) {
	f := newFixture(t)
	f.feed.On("ListFeed", mock.Anything, int64(0)).Return([]domain.FeedEntry{}, nil).Once()

	rec := f.do(t, http.MethodGet, "/feed", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListFeed_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"bad offset", domain.ErrBadParamInput, http.StatusBadRequest},
		{"unavailable", domain.ErrFeedUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("dial tcp: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.feed.On("ListFeed", mock.Anything, int64(-1)).Return(nil, tt.err).Once()

			rec := f.do(t, http.MethodGet, "/feed?offset=-1", nil, 0)
			assert.Equal(t, tt.code, rec.Code)

			var body rest.ResponseError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.code == http.StatusInternalServerError {
				assert.Equal(t, domain.ErrInternalServerError.Error(), body.Message)
			} else {
				assert.Equal(t, tt.err.Error(), body.Message)
			}
		})
	}
}

func TestListFeed_MalformedOffset(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/feed?offset=abc", nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.feed.AssertNotCalled(t, "ListFeed", mock.Anything, mock.Anything)
}

func TestCreateImage(t *testing.T) {
	f := newFixture(t)
	f.images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool {
		return img.UserID == 1 && img.Title == "test1"
	})).Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/images", map[string]string{
		"url":   "https://img.example.com/1.png",
		"title": "test1",
	}, 1)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got response.Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(10), got.ID)
	assert.Equal(t, int64(1), got.UserID)
	f.images.AssertExpectations(t)
}

func TestCreateImage_Rejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/images", map[string]string{"url": "https://a.b/c.png", "title": "x"}, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/images", map[string]string{"url": "not a url", "title": "x"}, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.images.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict).Once()
	rec = f.do(t, http.MethodPost, "/images", map[string]string{"url": "https://a.b/c.png", "title": "x"}, 1)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLike(t *testing.T) {
	f := newFixture(t)
	like := domain.Like{ID: "5f0c3c8e-8f4e-4c39-9d7e-0f2b2c1a9b11", UserID: 1, ImageID: 2}
	f.likes.On("AddLike", mock.Anything, int64(1), int64(2)).
		Return(like, domain.LikeTotal{ImageID: 2, Count: 1, Seq: 1}, nil).Once()
	f.likes.On("AddLike", mock.Anything, int64(1), int64(3)).
		Return(domain.Like{}, domain.LikeTotal{}, domain.ErrAlreadyLiked).Once()
	f.likes.On("AddLike", mock.Anything, int64(1), int64(4)).
		Return(domain.Like{}, domain.LikeTotal{}, domain.ErrNotFound).Once()

	rec := f.do(t, http.MethodPost, "/images/2/like", nil, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var got response.Like
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, like.ID, got.ID)
	assert.Equal(t, int64(1), got.TotalLikes)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/images/3/like", nil, 1).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/images/4/like", nil, 1).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/images/zero/like", nil, 1).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/images/2/like", nil, 0).Code)
	f.likes.AssertExpectations(t)
}

func TestUnlikeAndRemove(t *testing.T) {
	f := newFixture(t)
	like := domain.Like{ID: "5f0c3c8e-8f4e-4c39-9d7e-0f2b2c1a9b11", UserID: 1, ImageID: 2}
	f.likes.On("RemoveLikeByPair", mock.Anything, int64(1), int64(2)).
		Return(like, domain.LikeTotal{ImageID: 2, Count: 0, Seq: 2}, nil).Once()
	f.likes.On("RemoveLikeAs", mock.Anything, int64(7), like.ID).
		Return(domain.Like{}, domain.LikeTotal{}, domain.ErrNotFound).Once()

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/images/2/like", nil, 1).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/likes/"+like.ID, nil, 7).Code)
	f.likes.AssertExpectations(t)
}

func TestTotal(t *testing.T) {
	f := newFixture(t)
	f.likes.On("TotalLikesFor", mock.Anything, int64(2)).Return(int64(8), nil).Once()

	rec := f.do(t, http.MethodGet, "/images/2/likes", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"image_id":2,"total_likes":8}`, rec.Body.String())
}

func TestRPC(t *testing.T) {
	f := newFixture(t)
	like := domain.Like{ID: "5f0c3c8e-8f4e-4c39-9d7e-0f2b2c1a9b11", UserID: 1, ImageID: 2}
	f.feed.On("ListFeed", mock.Anything, int64(48)).Return([]domain.FeedEntry{}, nil).Once()
	f.likes.On("AddLike", mock.Anything, int64(1), int64(2)).
		Return(like, domain.LikeTotal{ImageID: 2, Count: 1, Seq: 1}, nil).Once()
	f.likes.On("RemoveLikeAs", mock.Anything, int64(1), like.ID).
		Return(like, domain.LikeTotal{ImageID: 2, Count: 0, Seq: 2}, nil).Once()

	rec := f.do(t, http.MethodPost, "/rpc", map[string]any{
		"operation": "listFeed",
		"variables": map[string]any{"offset": 48},
	}, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/rpc", map[string]any{
		"operation": "addLike",
		"variables": map[string]any{"imageId": 2},
	}, 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_likes":1`)

	rec = f.do(t, http.MethodPost, "/rpc", map[string]any{
		"operation": "removeLike",
		"variables": map[string]any{"likeId": like.ID},
	}, 1)
	require.Equal(t, http.StatusOK, rec.Code)
	f.feed.AssertExpectations(t)
	f.likes.AssertExpectations(t)
}

func TestRPC_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		userID int64
		code   int
	}{
		{"unknown operation", map[string]any{"operation": "dropTables"}, 1, http.StatusBadRequest},
		{"write without caller", map[string]any{"operation": "addLike", "variables": map[string]any{"imageId": 2}}, 0, http.StatusUnauthorized},
		{"missing image id", map[string]any{"operation": "addLike", "variables": map[string]any{}}, 1, http.StatusBadRequest},
		{"malformed like id", map[string]any{"operation": "removeLike", "variables": map[string]any{"likeId": "nope"}}, 1, http.StatusBadRequest},
		{"empty remove", map[string]any{"operation": "removeLike"}, 1, http.StatusBadRequest},
		{"negative offset", map[string]any{"operation": "listFeed", "variables": map[string]any{"offset": -1}}, 0, http.StatusBadRequest},
		{"bad image url", map[string]any{"operation": "createImage", "variables": map[string]any{"url": "x", "title": "t"}}, 1, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/rpc", tt.body, tt.userID)
			assert.Equal(t, tt.code, rec.Code)
			f.likes.AssertNotCalled(t, "AddLike", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
