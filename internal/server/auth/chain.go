// Package auth issues session tokens and resolves a bearer token into the
// calling user, optionally requiring that user to be active or a superuser.
package auth

import (
	"context"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/models"
)

// UserGetter loads a user by id.
type UserGetter interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// TokenDecoder extracts the subject id from a bearer token.
type TokenDecoder interface {
	Decode(token string) (string, error)
}

// Resolver turns a bearer token into a user.
type Resolver func(ctx context.Context, token string) (*models.User, error)

// Filter admits or rejects an already resolved user.
type Filter func(user *models.User) (*models.User, error)

// Then returns a Resolver that runs r and, on success, f.
func (r Resolver) Then(f Filter) Resolver {
	return func(ctx context.Context, token string) (*models.User, error) {
		user, err := r(ctx, token)
		if err != nil {
			return nil, err
		}
		return f(user)
	}
}

// RequireActive passes active users only.
func RequireActive(user *models.User) (*models.User, error) {
	if !user.IsActive {
		return nil, common.ErrorInactive
	}
	return user, nil
}

// RequireSuperuser passes superusers only.
func RequireSuperuser(user *models.User) (*models.User, error) {
	if !user.IsSuperuser {
		return nil, common.ErrorInsufficientPrivilege
	}
	return user, nil
}

// Chain holds the three resolution levels.
type Chain struct {
	CurrentUser       Resolver
	CurrentActiveUser Resolver
	CurrentSuperuser  Resolver
}

// NewChain wires the resolvers. A bad token and a token whose subject no
// longer exists both fail with common.ErrorUnauthorized; the cause is only
// logged.
func NewChain(tokens TokenDecoder, users UserGetter, logger logging.Logger) *Chain {
	current := Resolver(func(ctx context.Context, token string) (*models.User, error) {
		subject, err := tokens.Decode(token)
		if err != nil {
			logger.Warn(ctx, "token rejected", "error", err)
			return nil, common.ErrorUnauthorized
		}

		user, err := users.Get(ctx, subject)
		if err != nil {
			logger.Warn(ctx, "token subject not resolvable", "subject", subject, "error", err)
			return nil, common.ErrorUnauthorized
		}

		return user, nil
	})

	active := current.Then(RequireActive)

	return &Chain{
		CurrentUser:       current,
		CurrentActiveUser: active,
		CurrentSuperuser:  active.Then(RequireSuperuser),
	}
}
