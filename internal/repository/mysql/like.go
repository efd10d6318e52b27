package mysql

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/mysql/model"
)

// mutationTx runs at READ COMMITTED so the recount after taking the image row
// lock sees every mutation committed before the lock was granted.
var mutationTx = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// totalsQuery reads like_seq and the like count in one statement so both come
// from the same snapshot.
const totalsQuery = `SELECT images.id AS image_id, images.like_seq AS seq,
	(SELECT COUNT(*) FROM likes WHERE likes.image_id = images.id) AS count
	FROM images WHERE images.id IN ?`

type likeRepository struct {
	DB *gorm.DB
}

var _ domain.LikeRepository = (*likeRepository)(nil)

func NewLikeRepository(db *gorm.DB) *likeRepository {
	return &likeRepository{DB: db}
}

// Create locks the image row by bumping like_seq, inserts the like and recounts,
// all in one transaction. Every like mutation of an image serializes on that row
// lock, so the recount observes all mutations committed before it.
func (m *likeRepository) Create(ctx context.Context, l *domain.Like) (total domain.LikeTotal, err error) {
	likeModel := model.NewLikeFromDomain(l)
	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpLikeSeq(tx, l.ImageID); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(likeModel).Error; err != nil {
			return translateError(err)
		}

		var err error
		total, err = countOne(tx, l.ImageID)
		return err
	}, mutationTx)
	if err != nil {
		return domain.LikeTotal{}, err
	}
	l.CreatedAt = likeModel.CreatedAt
	return total, nil
}

func (m *likeRepository) DeleteByID(ctx context.Context, id string) (removed domain.Like, total domain.LikeTotal, err error) {
	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var likeModel model.Like
		if err := tx.Where("id = ?", id).Take(&likeModel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// image row first, same lock order as Create
		if err := bumpLikeSeq(tx, likeModel.ImageID); err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&model.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// removed concurrently; rollback undoes the seq bump
			return domain.ErrNotFound
		}

		var err error
		total, err = countOne(tx, likeModel.ImageID)
		removed = likeModel.ToDomain()
		return err
	}, mutationTx)
	if err != nil {
		return domain.Like{}, domain.LikeTotal{}, err
	}
	return removed, total, nil
}

func (m *likeRepository) FindByID(ctx context.Context, id string) (domain.Like, bool, error) {
	return m.findOne(ctx, "id = ?", id)
}

func (m *likeRepository) FindByPair(ctx context.Context, userID, imageID int64) (domain.Like, bool, error) {
	return m.findOne(ctx, "user_id = ? AND image_id = ?", userID, imageID)
}

func (m *likeRepository) CountForImage(ctx context.Context, imageID int64) (domain.LikeTotal, error) {
	return countOne(m.DB.WithContext(ctx), imageID)
}

func (m *likeRepository) CountForImages(ctx context.Context, imageIDs []int64) (map[int64]domain.LikeTotal, error) {
	res := make(map[int64]domain.LikeTotal, len(imageIDs))
	if len(imageIDs) == 0 {
		return res, nil
	}
	rows, err := countMany(m.DB.WithContext(ctx), imageIDs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		res[rows[i].ImageID] = rows[i].ToDomain()
	}
	return res, nil
}

func (m *likeRepository) findOne(ctx context.Context, query string, args ...any) (domain.Like, bool, error) {
	var likeModel model.Like
	err := m.DB.WithContext(ctx).Where(query, args...).Take(&likeModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Like{}, false, nil
	}
	if err != nil {
		return domain.Like{}, false, err
	}
	return likeModel.ToDomain(), true, nil
}

func bumpLikeSeq(tx *gorm.DB, imageID int64) error {
	result := tx.Model(&model.Image{}).
		Where("id = ?", imageID).
		UpdateColumn("like_seq", gorm.Expr("like_seq + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func countOne(db *gorm.DB, imageID int64) (domain.LikeTotal, error) {
	rows, err := countMany(db, []int64{imageID})
	if err != nil {
		return domain.LikeTotal{}, err
	}
	if len(rows) == 0 {
		return domain.LikeTotal{}, domain.ErrNotFound
	}
	return rows[0].ToDomain(), nil
}

func countMany(db *gorm.DB, imageIDs []int64) ([]model.LikeTotal, error) {
	var rows []model.LikeTotal
	if err := db.Raw(totalsQuery, imageIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
