// Package services contains server-side business logic. UserService is the
// user directory: it creates, looks up, updates and deletes accounts, keeps
// username and email unique, and turns credentials into session tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/cryptox"
	"github.com/dmitrijs2005/gophident/internal/dbx"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
}

// TokenIssuer signs a session token for a user id.
type TokenIssuer interface {
	IssueFor(subjectID string) (string, error)
}

// UserService provides the user directory operations.
type UserService struct {
	db          *sqlx.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	tokens      TokenIssuer
	clock       clockwork.Clock
	logger      logging.Logger

	// verified against when the username is unknown, so that a miss costs
	// one derivation like a hit does
	dummySalt   string
	dummyDigest string
}

// NewUserService wires the directory. A nil clock means the wall clock.
func NewUserService(db *sqlx.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher,
	tokens TokenIssuer, clock clockwork.Clock, logger logging.Logger) (*UserService, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	salt, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	digest, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		clock:       clock,
		logger:      logger,
		dummySalt:   salt,
		dummyDigest: digest,
	}, nil
}

// Get returns the user with the given id. Ids that are not UUIDs cannot
// exist and yield common.ErrorNotFound without a query.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Users(s.db).Get(ctx, id)
}

// GetBy looks a user up by username and/or email.
func (s *UserService) GetBy(ctx context.Context, f users.Filter) (*models.User, error) {
	return s.repomanager.Users(s.db).GetBy(ctx, f)
}

// List returns a page of users in creation order. A non-positive limit
// selects DefaultListLimit; larger limits are capped at MaxListLimit.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repomanager.Users(s.db).List(ctx, limit, offset)
}

// Create registers a new account. New accounts are active; IsSuperuser is
// taken from the draft and it is up to the caller to decide who may set it.
func (s *UserService) Create(ctx context.Context, draft models.UserDraft) (*models.User, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if err := s.checkUnique(ctx, repo, users.Filter{UserName: draft.UserName, Email: draft.Email, MatchAny: true}); err != nil {
		return nil, err
	}

	digest, salt, err := s.hasher.Hash(ctx, draft.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:          uuid.NewString(),
		UserName:    draft.UserName,
		Email:       draft.Email,
		FirstName:   draft.FirstName,
		LastName:    draft.LastName,
		IsSuperuser: draft.IsSuperuser,
		IsActive:    true,
		Preferences: draft.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	user.SetPassword(digest, salt)

	// the probe above can race with a concurrent create; the store's unique
	// constraints decide and surface as common.ErrorConflict
	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID, "username", created.UserName)
	return created, nil
}

// Update applies patch to the user with the given id and returns the new
// record. The row is locked for the duration of the transaction, so
// concurrent updates of the same user serialize.
func (s *UserService) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	// derive outside the transaction so the row lock is not held for it
	var digest, salt string
	if pw, ok := patch.Password.Get(); ok {
		var err error
		digest, salt, err = s.hasher.Hash(ctx, pw)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if patch.ChangesIdentity() {
			f := users.Filter{MatchAny: true, ExcludeID: id}
			f.UserName, _ = patch.UserName.Get()
			f.Email, _ = patch.Email.Get()
			if err := s.checkUnique(ctx, repo, f); err != nil {
				return err
			}
		}

		next := models.ApplyPatch(*current, patch)
		if patch.Password.Set {
			next.SetPassword(digest, salt)
		}
		next.UpdatedAt = s.advance(current.UpdatedAt)

		updated, err = repo.Update(ctx, &next)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.logger.Info(ctx, "user updated", "user_id", id, "password_changed", patch.Password.Set)
	return updated, nil
}

// Delete removes the user. Tokens issued for it stop resolving.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// Authenticate checks a username and password. An unknown username and a
// wrong password both fail with common.ErrorUnauthorized; only the log
// tells them apart.
func (s *UserService) Authenticate(ctx context.Context, userName, password string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	user, err := s.repomanager.Users(s.db).GetBy(ctx, users.Filter{UserName: userName})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(ctx, password, s.dummySalt, s.dummyDigest)
			s.logger.Info(ctx, "authentication failed: unknown username", "username", userName)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(ctx, password, user.Salt, user.HashedPassword) {
		s.logger.Info(ctx, "authentication failed: password mismatch", "user_id", user.ID)
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// Login authenticates and issues a bearer token. Inactive accounts are
// refused with common.ErrorInactive after their password checks out.
func (s *UserService) Login(ctx context.Context, userName, password string) (*Token, error) {
	user, err := s.Authenticate(ctx, userName, password)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrorInactive
	}

	access, err := s.tokens.IssueFor(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &Token{AccessToken: access, TokenType: common.BearerScheme}, nil
}

// --- helpers below ---

func (s *UserService) checkUnique(ctx context.Context, repo users.Repository, f users.Filter) error {
	if f.IsEmpty() {
		return nil
	}
	_, err := repo.GetBy(ctx, f)
	switch {
	case err == nil:
		return common.ErrorConflict
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return err
	}
}

// now is truncated to the store's timestamp precision so that values read
// back compare equal to the ones written.
func (s *UserService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// advance returns a timestamp strictly after prev.
func (s *UserService) advance(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func validID(id string) bool {
	return uuid.Validate(id) == nil
}
