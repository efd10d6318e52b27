package memory

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/cache"
)

const shardCount = 32

type latestTotal struct {
	total domain.LikeTotal
	at    time.Time
}

// imageShard owns the image→pages index and the latest applied totals of the
// images hashed to it.
type imageShard struct {
	mu     sync.Mutex
	pages  map[int64]map[domain.PageKey]struct{}
	latest map[int64]latestTotal
}

type pageShard struct {
	mu    sync.RWMutex
	pages map[domain.PageKey]*cachedPage
}

type cachedPage struct {
	mu   sync.RWMutex
	page *cache.Page
}

// FeedCache is a process-local domain.FeedPageCache.
//
// Lock order is image shard(s) ascending, then page shard, then page. GetPage
// never holds a page shard lock while taking a page lock.
type FeedCache struct {
	generation atomic.Int64
	images     [shardCount]imageShard
	pages      [shardCount]pageShard
	latestTTL  time.Duration
	now        func() time.Time
}

var _ domain.FeedPageCache = (*FeedCache)(nil)

// NewFeedCache keeps applied totals for latestTTL so that pages populated
// concurrently with a like mutation still pick its total up.
func NewFeedCache(latestTTL time.Duration) *FeedCache {
	c := &FeedCache{
		latestTTL: latestTTL,
		now:       time.Now,
	}
	for i := range c.images {
		c.images[i].pages = make(map[int64]map[domain.PageKey]struct{})
		c.images[i].latest = make(map[int64]latestTotal)
	}
	for i := range c.pages {
		c.pages[i].pages = make(map[domain.PageKey]*cachedPage)
	}
	return c
}

func imageShardIndex(id int64) int {
	return int(uint64(id) % shardCount)
}

func (c *FeedCache) pageShard(key domain.PageKey) *pageShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return &c.pages[h.Sum32()%shardCount]
}

func (c *FeedCache) Generation(ctx context.Context) (int64, error) {
	return c.generation.Load(), nil
}

func (c *FeedCache) GetPage(ctx context.Context, key domain.PageKey) ([]domain.FeedEntry, error) {
	ps := c.pageShard(key)
	ps.mu.RLock()
	cp, ok := ps.pages[key]
	ps.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCacheMiss
	}

	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return cp.page.Clone(), nil
}

func (c *FeedCache) SetPage(ctx context.Context, key domain.PageKey, entries []domain.FeedEntry) ([]domain.FeedEntry, error) {
	page := cache.NewPage(key, append([]domain.FeedEntry(nil), entries...))
	ids := page.ImageIDs()

	shards := c.lockImageShards(ids)
	defer unlockImageShards(shards)

	for _, id := range ids {
		if lt, ok := c.images[imageShardIndex(id)].latest[id]; ok {
			page.MergeTotal(lt.total)
		}
	}

	ps := c.pageShard(key)
	ps.mu.Lock()
	if key.Generation != c.generation.Load() {
		ps.mu.Unlock()
		return page.Clone(), nil
	}
	ps.pages[key] = &cachedPage{page: page}
	ps.mu.Unlock()

	for _, id := range ids {
		s := &c.images[imageShardIndex(id)]
		if s.pages[id] == nil {
			s.pages[id] = make(map[domain.PageKey]struct{})
		}
		s.pages[id][key] = struct{}{}
	}

	return page.Clone(), nil
}

func (c *FeedCache) PatchLikes(ctx context.Context, total domain.LikeTotal) error {
	s := &c.images[imageShardIndex(total.ImageID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.latest[total.ImageID]; !ok || total.Newer(cur.total.Seq) {
		s.latest[total.ImageID] = latestTotal{total: total, at: c.now()}
	}

	keys := s.pages[total.ImageID]
	for key := range keys {
		ps := c.pageShard(key)
		ps.mu.RLock()
		cp, ok := ps.pages[key]
		ps.mu.RUnlock()
		if !ok {
			delete(keys, key)
			continue
		}

		cp.mu.Lock()
		cp.page.MergeTotal(total)
		cp.mu.Unlock()
	}
	if len(keys) == 0 {
		delete(s.pages, total.ImageID)
	}
	return nil
}

func (c *FeedCache) Flush(ctx context.Context) (int64, error) {
	gen := c.generation.Add(1)
	for i := range c.pages {
		ps := &c.pages[i]
		ps.mu.Lock()
		ps.pages = make(map[domain.PageKey]*cachedPage)
		ps.mu.Unlock()
	}
	return gen, nil
}

func (c *FeedCache) DeletePage(ctx context.Context, key domain.PageKey) error {
	ps := c.pageShard(key)
	ps.mu.Lock()
	delete(ps.pages, key)
	ps.mu.Unlock()
	return nil
}

func (c *FeedCache) PageKeys(ctx context.Context, generation int64) ([]domain.PageKey, error) {
	var keys []domain.PageKey
	for i := range c.pages {
		ps := &c.pages[i]
		ps.mu.RLock()
		for key := range ps.pages {
			if key.Generation == generation {
				keys = append(keys, key)
			}
		}
		ps.mu.RUnlock()
	}
	return keys, nil
}

// Sweep drops applied totals older than the latest TTL and index entries of
// pages from past generations.
func (c *FeedCache) Sweep(ctx context.Context) error {
	gen := c.generation.Load()
	cutoff := c.now().Add(-c.latestTTL)
	for i := range c.images {
		s := &c.images[i]
		s.mu.Lock()
		for id, lt := range s.latest {
			if lt.at.Before(cutoff) {
				delete(s.latest, id)
			}
		}
		for id, keys := range s.pages {
			for key := range keys {
				if key.Generation < gen {
					delete(keys, key)
				}
			}
			if len(keys) == 0 {
				delete(s.pages, id)
			}
		}
		s.mu.Unlock()
	}
	return nil
}

func (c *FeedCache) lockImageShards(ids []int64) []*imageShard {
	idx := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i := imageShardIndex(id)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	shards := make([]*imageShard, len(idx))
	for n, i := range idx {
		shards[n] = &c.images[i]
		shards[n].mu.Lock()
	}
	return shards
}

func unlockImageShards(shards []*imageShard) {
	for i := len(shards) - 1; i >= 0; i-- {
		shards[i].mu.Unlock()
	}
}
