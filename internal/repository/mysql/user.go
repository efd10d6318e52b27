package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/mysql/model"
)

type userRepository struct {
	DB *gorm.DB
}

var _ domain.UserRepository = (*userRepository)(nil)

// NewUserRepository will create an implementation of domain.UserRepository
func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{
		DB: db,
	}
}

func (m *userRepository) Insert(ctx context.Context, u *domain.User) error {
	userModel := model.NewUserFromDomain(u)

	result := m.DB.WithContext(ctx).Omit(clause.Associations).Create(userModel)
	if result.Error != nil {
		return translateError(result.Error)
	}

	u.ID = userModel.ID
	u.CreatedAt = userModel.CreatedAt

	return nil
}

func (m *userRepository) GetByID(ctx context.Context, id int64) (domain.User, bool, error) {
	return m.findOne(ctx, "id = ?", id)
}

func (m *userRepository) FindByHandle(ctx context.Context, handle string) (domain.User, bool, error) {
	return m.findOne(ctx, "handle = ?", handle)
}

func (m *userRepository) GetByIDs(ctx context.Context, uids []int64) ([]domain.User, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := m.DB.WithContext(ctx).Model(&model.User{}).Where("id IN ?", uids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.User, len(users))
	for i := range users {
		res[i] = users[i].ToDomain()
	}
	return res, nil
}

func (m *userRepository) findOne(ctx context.Context, query string, arg any) (domain.User, bool, error) {
	var user model.User
	err := m.DB.WithContext(ctx).Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}

	return user.ToDomain(), true, nil
}
