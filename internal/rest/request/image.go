package request

import "github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"

type Image struct {
	URL         string `json:"url" binding:"required,url" validate:"required,url"`
	Title       string `json:"title" binding:"required,max=255" validate:"required,max=255"`
	Description string `json:"description" binding:"max=2000" validate:"max=2000"`
}

// ToDomain: Request -> Domain
func (r *Image) ToDomain(ownerID int64) domain.Image {
	return domain.Image{
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		UserID:      ownerID,
	}
}
