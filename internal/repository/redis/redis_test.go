package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/cache"
)

func TestFeedCache_Generation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, time.Minute, time.Minute)

	mock.ExpectGet(KeyFeedGeneration).RedisNil()
	gen, err := c.Generation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	mock.ExpectGet(KeyFeedGeneration).SetVal("3")
	gen, err = c.Generation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen)
}

func TestFeedCache_GetPage(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, time.Minute, time.Minute)
	key := domain.PageKey{Generation: 1, Offset: 24, Limit: 24}

	mock.ExpectGet("feed:page:1:24:24").RedisNil()
	_, err := c.GetPage(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	page := cache.NewPage(key, []domain.FeedEntry{{ImageID: 9, Title: "test1", TotalLikes: 2, LikeSeq: 2}})
	data, err := json.Marshal(page)
	require.NoError(t, err)
	mock.ExpectGet("feed:page:1:24:24").SetVal(string(data))

	entries, err := c.GetPage(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].ImageID)
	assert.Equal(t, int64(2), entries[0].TotalLikes)

	mock.ExpectGet("feed:page:1:24:24").SetErr(errors.New("conn refused"))
	_, err = c.GetPage(context.Background(), key)
	assert.EqualError(t, err, "conn refused")
}

func TestFeedCache_SetPageReturnsMergedEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, 10*time.Minute, time.Minute)
	key := domain.PageKey{Generation: 2, Offset: 0, Limit: 24}

	merged := cache.NewPage(key, []domain.FeedEntry{{ImageID: 1, TotalLikes: 5, LikeSeq: 7}})
	stored, err := json.Marshal(merged)
	require.NoError(t, err)

	mock.CustomMatch(func(expected, actual []interface{}) error {
		// evalsha sha numkeys keys... argv...
		if len(actual) != 11 {
			return fmt.Errorf("unexpected args %v", actual)
		}
		if actual[3] != "feed:page:2:0:24" || actual[4] != KeyFeedGeneration {
			return fmt.Errorf("unexpected keys %v", actual[3:5])
		}
		if actual[6] != int64(600) || actual[7] != "2" {
			return fmt.Errorf("unexpected ttl or generation %v", actual[6:8])
		}
		return nil
	}).ExpectEvalSha(setPageScript.Hash(), []string{"feed:page:2:0:24", KeyFeedGeneration},
		"", int64(600), "2", "feed:likes:", "feed:image:", ":pages").SetVal(string(stored))

	entries, err := c.SetPage(context.Background(), key, []domain.FeedEntry{{ImageID: 1, TotalLikes: 4, LikeSeq: 6}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].TotalLikes)
	assert.Equal(t, int64(7), entries[0].LikeSeq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedCache_PatchLikes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, 10*time.Minute, time.Minute)

	total := domain.LikeTotal{ImageID: 3, Count: 1, Seq: 4}
	mock.ExpectEvalSha(patchLikesScript.Hash(),
		[]string{"feed:likes:3", "feed:image:3:pages"},
		int64(3), int64(4), int64(1), int64(60)).SetVal(int64(2))
	require.NoError(t, c.PatchLikes(context.Background(), total))

	mock.ExpectEvalSha(patchLikesScript.Hash(),
		[]string{"feed:likes:3", "feed:image:3:pages"},
		int64(3), int64(4), int64(1), int64(60)).SetErr(errors.New("OOM"))
	assert.Error(t, c.PatchLikes(context.Background(), total))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedCache_Flush(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, time.Minute, time.Minute)

	mock.ExpectIncr(KeyFeedGeneration).SetVal(5)
	mock.ExpectScan(0, KeyFeedPagePrefix+"*", scanBatch).
		SetVal([]string{"feed:page:4:0:24", "feed:page:5:0:24", "feed:page:bogus"}, 0)
	mock.ExpectUnlink("feed:page:4:0:24").SetVal(1)

	gen, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), gen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedCache_PageKeysAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewFeedCache(client, time.Minute, time.Minute)

	mock.ExpectScan(0, "feed:page:3:*", scanBatch).
		SetVal([]string{"feed:page:3:0:24", "feed:page:3:24:24"}, 0)
	keys, err := c.PageKeys(context.Background(), 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.PageKey{
		{Generation: 3, Offset: 0, Limit: 24},
		{Generation: 3, Offset: 24, Limit: 24},
	}, keys)

	mock.ExpectDel("feed:page:3:24:24").SetVal(1)
	require.NoError(t, c.DeletePage(context.Background(), domain.PageKey{Generation: 3, Offset: 24, Limit: 24}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParsePageKey(t *testing.T) {
	key, ok := parsePageKey("feed:page:7:48:24")
	require.True(t, ok)
	assert.Equal(t, domain.PageKey{Generation: 7, Offset: 48, Limit: 24}, key)

	for _, bad := range []string{"feed:page:7:48", "feed:page:a:0:24", "feed:page:"} {
		_, ok := parsePageKey(bad)
		assert.False(t, ok, bad)
	}
}
