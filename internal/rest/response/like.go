package response

import "github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"

type Like struct {
	ID         string `json:"id"`
	UserID     int64  `json:"user_id"`
	ImageID    int64  `json:"image_id"`
	TotalLikes int64  `json:"total_likes"`
}

func NewLikeFromDomain(l *domain.Like, total domain.LikeTotal) Like {
	return Like{
		ID:         l.ID,
		UserID:     l.UserID,
		ImageID:    l.ImageID,
		TotalLikes: total.Count,
	}
}

type LikeTotal struct {
	ImageID    int64 `json:"image_id"`
	TotalLikes int64 `json:"total_likes"`
}
