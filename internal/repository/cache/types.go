package cache

import (
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

// Page is the cached representation of one feed page.
type Page struct {
	Generation int64              `json:"generation"`
	Entries    []domain.FeedEntry `json:"entries"`
	CreatedAt  time.Time          `json:"created_at"` // 创建时间，用于调试
}

// NewPage wraps entries assembled for key.
func NewPage(key domain.PageKey, entries []domain.FeedEntry) *Page {
	return &Page{
		Generation: key.Generation,
		Entries:    entries,
		CreatedAt:  time.Now(),
	}
}

// ImageIDs returns the distinct image IDs of the page in entry order.
func (p *Page) ImageIDs() []int64 {
	ids := make([]int64, 0, len(p.Entries))
	seen := make(map[int64]struct{}, len(p.Entries))
	for _, e := range p.Entries {
		if _, ok := seen[e.ImageID]; ok {
			continue
		}
		seen[e.ImageID] = struct{}{}
		ids = append(ids, e.ImageID)
	}
	return ids
}

// MergeTotal applies total to the page's entry for its image when it is newer.
// It reports whether anything changed.
func (p *Page) MergeTotal(total domain.LikeTotal) bool {
	changed := false
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.ImageID == total.ImageID && total.Newer(e.LikeSeq) {
			e.TotalLikes = total.Count
			e.LikeSeq = total.Seq
			changed = true
		}
	}
	return changed
}

// Clone returns a copy of the entries safe to hand to callers.
func (p *Page) Clone() []domain.FeedEntry {
	res := make([]domain.FeedEntry, len(p.Entries))
	copy(res, p.Entries)
	return res
}
