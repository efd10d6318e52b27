package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/mysql/model"
)

type imageRepository struct {
	DB *gorm.DB
}

// mysql层只负责数据库操作
var _ domain.ImageRepository = (*imageRepository)(nil)

// NewImageRepository creates the image persistence layer
func NewImageRepository(db *gorm.DB) *imageRepository {
	return &imageRepository{db}
}

func (m *imageRepository) Store(ctx context.Context, img *domain.Image) error {
	imageModel := model.NewImageFromDomain(img)
	result := m.DB.WithContext(ctx).Omit(clause.Associations).Create(imageModel)
	if result.Error != nil {
		return translateError(result.Error)
	}
	img.ID = imageModel.ID
	img.CreatedAt = imageModel.CreatedAt
	return nil
}

func (m *imageRepository) GetByID(ctx context.Context, id int64) (domain.Image, bool, error) {
	return m.findOne(ctx, "id = ?", id)
}

func (m *imageRepository) FindByTitle(ctx context.Context, title string) (domain.Image, bool, error) {
	return m.findOne(ctx, "title = ?", title)
}

func (m *imageRepository) ListByRecency(ctx context.Context, offset, limit int64) ([]domain.Image, error) {
	if offset < 0 {
		return nil, domain.ErrBadParamInput
	}
	repository.PageVerify(&limit)

	var images []model.Image
	err := m.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(int(offset)).
		Limit(int(limit)).
		Find(&images).Error
	if err != nil {
		return nil, err
	}

	res := make([]domain.Image, len(images))
	for i := range images {
		res[i] = images[i].ToDomain()
	}
	return res, nil
}

func (m *imageRepository) FetchIDs(ctx context.Context, cursor, limit int64) (ids []int64, err error) {
	err = m.DB.WithContext(ctx).
		Model(&model.Image{}).
		Where("id > ?", cursor).
		Order("id").
		Limit(int(limit)).
		Pluck("id", &ids).Error
	return
}

func (m *imageRepository) findOne(ctx context.Context, query string, arg any) (domain.Image, bool, error) {
	var image model.Image
	err := m.DB.WithContext(ctx).Where(query, arg).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Image{}, false, nil
	}
	if err != nil {
		return domain.Image{}, false, err
	}
	return image.ToDomain(), true, nil
}
