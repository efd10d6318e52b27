package model

import (
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Handle       string    `gorm:"type:varchar(64);not null;uniqueIndex:uniq_users_handle"`
	Email        string    `gorm:"type:varchar(255);not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	Avatar       string    `gorm:"type:varchar(2048)"`
	CreatedAt    time.Time `gorm:"type:datetime(3)"`
}

func (User) TableName() string {
	return "users"
}

func (m *User) ToDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Handle:       m.Handle,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Avatar:       m.Avatar,
		CreatedAt:    m.CreatedAt,
	}
}

func NewUserFromDomain(u *domain.User) *User {
	return &User{
		ID:           u.ID,
		Handle:       u.Handle,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
	}
}
