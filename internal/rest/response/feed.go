package response

import "github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"

type FeedEntry struct {
	ImageID     int64  `json:"image_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name"`
	Avatar      string `json:"avatar"`
	CreatedAt   string `json:"created_at"`
	TotalLikes  int64  `json:"total_likes"`
}

// NewFeedFromDomain: Domain -> Response
func NewFeedFromDomain(entries []domain.FeedEntry) []FeedEntry {
	res := make([]FeedEntry, len(entries))
	for i, e := range entries {
		res[i] = FeedEntry{
			ImageID:     e.ImageID,
			URL:         e.URL,
			Title:       e.Title,
			Description: e.Description,
			UserID:      e.UserID,
			UserName:    e.UserName,
			Avatar:      e.Avatar,
			CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
			TotalLikes:  e.TotalLikes,
		}
	}
	return res
}
