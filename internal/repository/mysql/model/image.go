package model

import (
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

type Image struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	URL         string    `gorm:"column:url;type:varchar(2048);not null"`
	Title       string    `gorm:"type:varchar(255);not null;uniqueIndex:uniq_images_title"`
	Description string    `gorm:"type:text;not null"`
	UserID      int64     `gorm:"column:user_id;not null;index"`
	LikeSeq     int64     `gorm:"column:like_seq;not null;default:0"`
	CreatedAt   time.Time `gorm:"type:datetime(3);index:idx_images_recency,priority:1,sort:desc"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Image) TableName() string {
	return "images"
}

func (m *Image) ToDomain() domain.Image {
	return domain.Image{
		ID:          m.ID,
		URL:         m.URL,
		Title:       m.Title,
		Description: m.Description,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		LikeSeq:     m.LikeSeq,
	}
}

func NewImageFromDomain(img *domain.Image) *Image {
	return &Image{
		ID:          img.ID,
		URL:         img.URL,
		Title:       img.Title,
		Description: img.Description,
		UserID:      img.UserID,
		CreatedAt:   img.CreatedAt,
		LikeSeq:     img.LikeSeq,
	}
}
