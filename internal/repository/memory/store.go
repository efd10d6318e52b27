// Package memory holds process-local implementations of the store and of the
// feed page cache. They back local runs (STORE_DRIVER=memory, CACHE_DRIVER=memory)
// and the service-level tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository"
)

type pairKey struct {
	userID, imageID int64
}

// DB is the shared row storage of the memory repositories. Every write is a
// check-and-write under the write lock, which makes conditional writes atomic.
type DB struct {
	mu sync.RWMutex

	users   map[int64]domain.User
	handles map[string]int64

	images map[int64]domain.Image
	titles map[string]int64

	likes        map[string]domain.Like
	pairs        map[pairKey]string
	likesByImage map[int64]map[string]struct{}

	nextUserID  int64
	nextImageID int64
	now         func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:        make(map[int64]domain.User),
		handles:      make(map[string]int64),
		images:       make(map[int64]domain.Image),
		titles:       make(map[string]int64),
		likes:        make(map[string]domain.Like),
		pairs:        make(map[pairKey]string),
		likesByImage: make(map[int64]map[string]struct{}),
		now:          time.Now,
	}
}

// totalLocked recomputes the total of an image from the like rows. Caller holds mu.
func (db *DB) totalLocked(imageID int64) domain.LikeTotal {
	return domain.LikeTotal{
		ImageID: imageID,
		Count:   int64(len(db.likesByImage[imageID])),
		Seq:     db.images[imageID].LikeSeq,
	}
}

func (db *DB) bumpSeqLocked(imageID int64) {
	img := db.images[imageID]
	img.LikeSeq++
	db.images[imageID] = img
}

type userRepository struct {
	db *DB
}

var _ domain.UserRepository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Insert(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.handles[u.Handle]; ok {
		return &domain.ConflictError{Constraint: domain.ConstraintUserHandle}
	}
	r.db.nextUserID++
	u.ID = r.db.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.db.now()
	}
	r.db.users[u.ID] = *u
	r.db.handles[u.Handle] = u.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (domain.User, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	return u, ok, nil
}

func (r *userRepository) FindByHandle(ctx context.Context, handle string) (domain.User, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	id, ok := r.db.handles[handle]
	if !ok {
		return domain.User{}, false, nil
	}
	return r.db.users[id], true, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

type imageRepository struct {
	db *DB
}

var _ domain.ImageRepository = (*imageRepository)(nil)

func NewImageRepository(db *DB) *imageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Store(ctx context.Context, img *domain.Image) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[img.UserID]; !ok {
		return &domain.ConflictError{Constraint: domain.ConstraintImageUser}
	}
	if _, ok := r.db.titles[img.Title]; ok {
		return &domain.ConflictError{Constraint: domain.ConstraintImageTitle}
	}
	r.db.nextImageID++
	img.ID = r.db.nextImageID
	if img.CreatedAt.IsZero() {
		img.CreatedAt = r.db.now()
	}
	r.db.images[img.ID] = *img
	r.db.titles[img.Title] = img.ID
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id int64) (domain.Image, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	img, ok := r.db.images[id]
	return img, ok, nil
}

func (r *imageRepository) FindByTitle(ctx context.Context, title string) (domain.Image, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	id, ok := r.db.titles[title]
	if !ok {
		return domain.Image{}, false, nil
	}
	return r.db.images[id], true, nil
}

func (r *imageRepository) ListByRecency(ctx context.Context, offset, limit int64) ([]domain.Image, error) {
	if offset < 0 {
		return nil, domain.ErrBadParamInput
	}
	repository.PageVerify(&limit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.db.mu.RLock()
	all := make([]domain.Image, 0, len(r.db.images))
	for _, img := range r.db.images {
		all = append(all, img)
	}
	r.db.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= int64(len(all)) {
		return []domain.Image{}, nil
	}
	end := min(offset+limit, int64(len(all)))
	return all[offset:end], nil
}

func (r *imageRepository) FetchIDs(ctx context.Context, cursor, limit int64) ([]int64, error) {
	r.db.mu.RLock()
	ids := make([]int64, 0, len(r.db.images))
	for id := range r.db.images {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	r.db.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type likeRepository struct {
	db *DB
}

var _ domain.LikeRepository = (*likeRepository)(nil)

func NewLikeRepository(db *DB) *likeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, l *domain.Like) (domain.LikeTotal, error) {
	if err := ctx.Err(); err != nil {
		return domain.LikeTotal{}, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.images[l.ImageID]; !ok {
		return domain.LikeTotal{}, domain.ErrNotFound
	}
	if _, ok := r.db.users[l.UserID]; !ok {
		return domain.LikeTotal{}, &domain.ConflictError{Constraint: domain.ConstraintLikeUser}
	}
	pair := pairKey{userID: l.UserID, imageID: l.ImageID}
	if _, ok := r.db.pairs[pair]; ok {
		return domain.LikeTotal{}, &domain.ConflictError{Constraint: domain.ConstraintLikeUnique}
	}
	if _, ok := r.db.likes[l.ID]; ok {
		return domain.LikeTotal{}, &domain.ConflictError{Constraint: "PRIMARY"}
	}

	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.db.now()
	}
	r.db.likes[l.ID] = *l
	r.db.pairs[pair] = l.ID
	if r.db.likesByImage[l.ImageID] == nil {
		r.db.likesByImage[l.ImageID] = make(map[string]struct{})
	}
	r.db.likesByImage[l.ImageID][l.ID] = struct{}{}
	r.db.bumpSeqLocked(l.ImageID)

	return r.db.totalLocked(l.ImageID), nil
}

func (r *likeRepository) DeleteByID(ctx context.Context, id string) (domain.Like, domain.LikeTotal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Like{}, domain.LikeTotal{}, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l, ok := r.db.likes[id]
	if !ok {
		return domain.Like{}, domain.LikeTotal{}, domain.ErrNotFound
	}
	delete(r.db.likes, id)
	delete(r.db.pairs, pairKey{userID: l.UserID, imageID: l.ImageID})
	delete(r.db.likesByImage[l.ImageID], id)
	r.db.bumpSeqLocked(l.ImageID)

	return l, r.db.totalLocked(l.ImageID), nil
}

func (r *likeRepository) FindByID(ctx context.Context, id string) (domain.Like, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	l, ok := r.db.likes[id]
	return l, ok, nil
}

func (r *likeRepository) FindByPair(ctx context.Context, userID, imageID int64) (domain.Like, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	id, ok := r.db.pairs[pairKey{userID: userID, imageID: imageID}]
	if !ok {
		return domain.Like{}, false, nil
	}
	return r.db.likes[id], true, nil
}

func (r *likeRepository) CountForImage(ctx context.Context, imageID int64) (domain.LikeTotal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.images[imageID]; !ok {
		return domain.LikeTotal{}, domain.ErrNotFound
	}
	return r.db.totalLocked(imageID), nil
}

func (r *likeRepository) CountForImages(ctx context.Context, imageIDs []int64) (map[int64]domain.LikeTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	res := make(map[int64]domain.LikeTotal, len(imageIDs))
	for _, id := range imageIDs {
		if _, ok := r.db.images[id]; ok {
			res[id] = r.db.totalLocked(id)
		}
	}
	return res, nil
}
