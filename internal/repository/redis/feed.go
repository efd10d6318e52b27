package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/cache"
)

const (
	KeyFeedGeneration = "feed:generation"
	KeyFeedPage       = "feed:page:%d:%d:%d" // generation:offset:limit
	KeyFeedPagePrefix = "feed:page:"
	KeyImagePages     = "feed:image:%d:pages"
	KeyLatestLikes    = "feed:likes:%d"

	scanBatch = 500
)

// setPageScript stores a page unless its generation is stale. Before storing
// it merges the latest applied totals and adds the page to every image index,
// so a patch either sees the page in the index or left a total for it here.
//
// KEYS = {page key, generation key}
// ARGV = {page json, ttl seconds, generation, latest prefix, index prefix, index suffix}
var setPageScript = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2]) or '0'
	if gen ~= ARGV[3] then
		return ARGV[1] -- 已翻页, 不写缓存
	end

	local page = cjson.decode(ARGV[1])
	for _, e in ipairs(page.entries) do
		local id = string.format('%d', e.image_id)
		local cur = redis.call('GET', ARGV[4] .. id)
		if cur then
			local seq, cnt = string.match(cur, '^(%d+):(%d+)$')
			if seq and tonumber(seq) > e.like_seq then
				e.like_seq = tonumber(seq)
				e.total_likes = tonumber(cnt)
			end
		end
		local idx = ARGV[5] .. id .. ARGV[6]
		redis.call('SADD', idx, KEYS[1])
		redis.call('EXPIRE', idx, ARGV[2])
	end

	local payload = cjson.encode(page)
	redis.call('SET', KEYS[1], payload, 'EX', ARGV[2])
	return payload
`)

// patchLikesScript records the total as latest and rewrites it into every
// indexed page whose entry is older.
//
// KEYS = {latest key, index key}
// ARGV = {image id, seq, count, latest ttl seconds}
var patchLikesScript = redis.NewScript(`
	local seq = tonumber(ARGV[2])
	local cur = redis.call('GET', KEYS[1])
	if cur then
		local curSeq = tonumber(string.match(cur, '^(%d+):'))
		if curSeq and curSeq >= seq then
			return 0 -- 已有更新的值
		end
	end
	redis.call('SET', KEYS[1], ARGV[2] .. ':' .. ARGV[3], 'EX', ARGV[4])

	local id = tonumber(ARGV[1])
	local patched = 0
	for _, pk in ipairs(redis.call('SMEMBERS', KEYS[2])) do
		local raw = redis.call('GET', pk)
		if raw then
			local page = cjson.decode(raw)
			local changed = false
			for _, e in ipairs(page.entries) do
				if e.image_id == id and e.like_seq < seq then
					e.like_seq = seq
					e.total_likes = tonumber(ARGV[3])
					changed = true
				end
			end
			if changed then
				redis.call('SET', pk, cjson.encode(page), 'KEEPTTL')
				patched = patched + 1
			end
		else
			redis.call('SREM', KEYS[2], pk)
		end
	end
	return patched
`)

type feedCache struct {
	client    *redis.Client
	pageTTL   time.Duration
	latestTTL time.Duration
}

var _ domain.FeedPageCache = (*feedCache)(nil)

func NewFeedCache(client *redis.Client, pageTTL, latestTTL time.Duration) *feedCache {
	return &feedCache{
		client:    client,
		pageTTL:   pageTTL,
		latestTTL: latestTTL,
	}
}

func pageKey(key domain.PageKey) string {
	return fmt.Sprintf(KeyFeedPage, key.Generation, key.Offset, key.Limit)
}

func parsePageKey(s string) (domain.PageKey, bool) {
	parts := strings.Split(strings.TrimPrefix(s, KeyFeedPagePrefix), ":")
	if len(parts) != 3 {
		return domain.PageKey{}, false
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return domain.PageKey{}, false
		}
		nums[i] = n
	}
	return domain.PageKey{Generation: nums[0], Offset: nums[1], Limit: nums[2]}, true
}

func (c *feedCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, KeyFeedGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *feedCache) GetPage(ctx context.Context, key domain.PageKey) ([]domain.FeedEntry, error) {
	data, err := c.client.Get(ctx, pageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	} else if err != nil {
		return nil, err
	}

	return decodePage(data)
}

func (c *feedCache) SetPage(ctx context.Context, key domain.PageKey, entries []domain.FeedEntry) ([]domain.FeedEntry, error) {
	page := cache.NewPage(key, entries)
	if len(entries) == 0 {
		// nothing to index or merge; cjson would also turn [] into {}
		data, err := json.Marshal(page)
		if err != nil {
			return nil, err
		}
		return []domain.FeedEntry{}, c.client.Set(ctx, pageKey(key), data, c.pageTTL).Err()
	}

	data, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}

	keys := []string{pageKey(key), KeyFeedGeneration}
	args := []any{
		string(data),
		int64(c.pageTTL / time.Second),
		strconv.FormatInt(key.Generation, 10),
		"feed:likes:",
		"feed:image:",
		":pages",
	}
	stored, err := setPageScript.Run(ctx, c.client, keys, args...).Text()
	if err != nil {
		return nil, err
	}
	return decodePage([]byte(stored))
}

func (c *feedCache) PatchLikes(ctx context.Context, total domain.LikeTotal) error {
	keys := []string{
		fmt.Sprintf(KeyLatestLikes, total.ImageID),
		fmt.Sprintf(KeyImagePages, total.ImageID),
	}
	args := []any{total.ImageID, total.Seq, total.Count, int64(c.latestTTL / time.Second)}
	patched, err := patchLikesScript.Run(ctx, c.client, keys, args...).Int()
	if err != nil {
		return err
	}
	logrus.Debugf("patched like total of image %d in %d pages", total.ImageID, patched)
	return nil
}

func (c *feedCache) Flush(ctx context.Context) (int64, error) {
	gen, err := c.client.Incr(ctx, KeyFeedGeneration).Result()
	if err != nil {
		return 0, err
	}

	var stale []string
	iter := c.client.Scan(ctx, 0, KeyFeedPagePrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		if key, ok := parsePageKey(iter.Val()); ok && key.Generation < gen {
			stale = append(stale, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		// old generations are unreachable already and expire by TTL
		logrus.Warnf("failed to scan stale feed pages: %v", err)
		return gen, nil
	}
	if len(stale) > 0 {
		if err := c.client.Unlink(ctx, stale...).Err(); err != nil {
			logrus.Warnf("failed to unlink %d stale feed pages: %v", len(stale), err)
		}
	}
	return gen, nil
}

func (c *feedCache) DeletePage(ctx context.Context, key domain.PageKey) error {
	return c.client.Del(ctx, pageKey(key)).Err()
}

func (c *feedCache) PageKeys(ctx context.Context, generation int64) ([]domain.PageKey, error) {
	var keys []domain.PageKey
	pattern := fmt.Sprintf("%s%d:*", KeyFeedPagePrefix, generation)
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		if key, ok := parsePageKey(iter.Val()); ok {
			keys = append(keys, key)
		}
	}
	return keys, iter.Err()
}

func decodePage(data []byte) ([]domain.FeedEntry, error) {
	var page cache.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page.Entries == nil {
		return []domain.FeedEntry{}, nil
	}
	return page.Entries, nil
}
