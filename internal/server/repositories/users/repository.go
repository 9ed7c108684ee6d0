package users

import (
	"context"

	"github.com/dmitrijs2005/gophident/internal/server/models"
)

// Filter selects a user by equality on username and/or email.
// With MatchAny the conditions are OR-ed, otherwise AND-ed. ExcludeID drops
// one row from the match, which is how uniqueness is probed on update.
type Filter struct {
	UserName  string
	Email     string
	ExcludeID string
	MatchAny  bool
}

// IsEmpty reports whether the filter has no equality condition.
func (f Filter) IsEmpty() bool {
	return f.UserName == "" && f.Email == ""
}

// Repository persists users. Implementations return common.ErrorNotFound for
// missing rows and common.ErrorConflict when a unique constraint rejects a write.
type Repository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	GetBy(ctx context.Context, f Filter) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
