package response

import "github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"

type Image struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      int64  `json:"user_id"`
	CreatedAt   string `json:"created_at"`
}

func NewImageFromDomain(img *domain.Image) Image {
	return Image{
		ID:          img.ID,
		URL:         img.URL,
		Title:       img.Title,
		Description: img.Description,
		UserID:      img.UserID,
		CreatedAt:   img.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
