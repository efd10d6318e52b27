package model

import (
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

// Like 点赞记录, 唯一键: user_id + image_id
type Like struct {
	ID        string    `gorm:"primaryKey;type:char(36)"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:uniq_likes_user_image,priority:1"`
	ImageID   int64     `gorm:"column:image_id;not null;uniqueIndex:uniq_likes_user_image,priority:2;index:idx_likes_image"`
	CreatedAt time.Time `gorm:"type:datetime(3)"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Image Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`
}

func (Like) TableName() string {
	return "likes"
}

func (m *Like) ToDomain() domain.Like {
	return domain.Like{
		ID:        m.ID,
		UserID:    m.UserID,
		ImageID:   m.ImageID,
		CreatedAt: m.CreatedAt,
	}
}

func NewLikeFromDomain(l *domain.Like) *Like {
	return &Like{
		ID:        l.ID,
		UserID:    l.UserID,
		ImageID:   l.ImageID,
		CreatedAt: l.CreatedAt,
	}
}

// LikeTotal is the scan target of the total query.
type LikeTotal struct {
	ImageID int64 `gorm:"column:image_id"`
	Count   int64 `gorm:"column:count"`
	Seq     int64 `gorm:"column:seq"`
}

func (m *LikeTotal) ToDomain() domain.LikeTotal {
	return domain.LikeTotal{
		ImageID: m.ImageID,
		Count:   m.Count,
		Seq:     m.Seq,
	}
}
