package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/dbx"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/users"
)

// memRepo is an in-memory users.Repository that enforces the same unique
// constraints as the schema.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]models.User

	// called before a write is checked against the constraints
	beforeWrite func(u *models.User)
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]models.User{}}
}

func (r *memRepo) Get(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.Get(ctx, id)
}

func (r *memRepo) GetBy(_ context.Context, f users.Filter) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.ID == f.ExcludeID {
			continue
		}
		nameHit := f.UserName != "" && u.UserName == f.UserName
		mailHit := f.Email != "" && u.Email == f.Email
		var hit bool
		if f.MatchAny {
			hit = nameHit || mailHit
		} else {
			hit = (f.UserName == "" || nameHit) && (f.Email == "" || mailHit)
		}
		if hit {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.User, 0, len(r.rows))
	for _, u := range r.rows {
		u := u
		all = append(all, &u)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []*models.User{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memRepo) violates(u *models.User) bool {
	for _, other := range r.rows {
		if other.ID != u.ID && (other.UserName == u.UserName || other.Email == u.Email) {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if r.beforeWrite != nil {
		r.beforeWrite(u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[u.ID]; ok || r.violates(u) {
		return nil, common.ErrorConflict
	}
	r.rows[u.ID] = *u
	return u, nil
}

func (r *memRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	if r.beforeWrite != nil {
		r.beforeWrite(u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	if r.violates(u) {
		return nil, common.ErrorConflict
	}
	r.rows[u.ID] = *u
	return u, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

// put inserts a row directly, bypassing the constraints.
func (r *memRepo) put(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[u.ID] = u
}

type memManager struct {
	repo *memRepo
}

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memManager) Users(dbx.DBTX) users.Repository { return m.repo }
