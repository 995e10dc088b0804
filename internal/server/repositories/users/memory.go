package users

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a process-local Repository with the same version
// semantics as PostgresRepository. Records are copied on every read and write.
type MemoryRepository struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	now   func() time.Time
	order int64
	seq   map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*models.User),
		seq:  make(map[string]int64),
		now:  time.Now,
	}
}

func clone(u *models.User) *models.User {
	c := *u
	c.RefreshTokens = slices.Clone(u.RefreshTokens)
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	user.Version = 1
	user.CreatedAt, user.UpdatedAt = now, now

	r.order++
	r.seq[user.ID] = r.order
	r.byID[user.ID] = clone(user)
	return user, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) Update(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[user.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if cur.Version != user.Version {
		return nil, common.ErrVersionConflict
	}
	for id, u := range r.byID {
		if id != user.ID && u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}

	user.Version++
	user.CreatedAt = cur.CreatedAt
	user.UpdatedAt = r.now()
	r.byID[user.ID] = clone(user)
	return user, nil
}

func (r *MemoryRepository) List(_ context.Context, limit, skip int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		all = append(all, clone(u))
	}
	sort.Slice(all, func(i, j int) bool { return r.seq[all[i].ID] < r.seq[all[j].ID] })

	if skip >= len(all) {
		return []*models.User{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.byID))
	clear(r.byID)
	clear(r.seq)
	return n, nil
}

func (r *MemoryRepository) IDsWithExpiredTokens(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, u := range r.byID {
		if slices.ContainsFunc(u.RefreshTokens, func(rt models.RefreshToken) bool { return rt.Expired(now) }) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
