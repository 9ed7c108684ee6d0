package grpc

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/auth"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"github.com/dmitrijs2005/gophident/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory UserDirectory. Passwords are stored in
// clear; hashing is covered elsewhere.
type fakeDirectory struct {
	mu     sync.Mutex
	users  map[string]*models.User
	pw     map[string]string
	tokens *auth.TokenService
	seq    int
}

func newFakeDirectory(tokens *auth.TokenService) *fakeDirectory {
	return &fakeDirectory{users: map[string]*models.User{}, pw: map[string]string{}, tokens: tokens}
}

func (d *fakeDirectory) add(u models.User, password string) *models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	d.seq++
	u.CreatedAt = time.Unix(int64(d.seq), 0).UTC()
	u.UpdatedAt = u.CreatedAt
	d.users[u.ID] = &u
	d.pw[u.ID] = password
	c := u
	return &c
}

func (d *fakeDirectory) Get(_ context.Context, id string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (d *fakeDirectory) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*models.User, 0, len(d.users))
	for _, u := range d.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit <= 0 {
		limit = services.DefaultListLimit
	}
	if offset >= len(out) {
		return []*models.User{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (d *fakeDirectory) taken(name, email, except string) bool {
	for _, u := range d.users {
		if u.ID != except && (u.UserName == name || u.Email == email) {
			return true
		}
	}
	return false
}

func (d *fakeDirectory) Create(_ context.Context, draft models.UserDraft) (*models.User, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	taken := d.taken(draft.UserName, draft.Email, "")
	d.mu.Unlock()
	if taken {
		return nil, common.ErrorConflict
	}
	return d.add(models.User{
		UserName:    draft.UserName,
		Email:       draft.Email,
		FirstName:   draft.FirstName,
		LastName:    draft.LastName,
		Preferences: draft.Preferences,
		IsActive:    true,
	}, draft.Password), nil
}

func (d *fakeDirectory) Update(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	next := models.ApplyPatch(*u, patch)
	if d.taken(next.UserName, next.Email, id) {
		return nil, common.ErrorConflict
	}
	if pw, ok := patch.Password.Get(); ok {
		d.pw[id] = pw
	}
	next.UpdatedAt = u.UpdatedAt.Add(time.Second)
	d.users[id] = &next
	c := next
	return &c, nil
}

func (d *fakeDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(d.users, id)
	delete(d.pw, id)
	return nil
}

func (d *fakeDirectory) Login(_ context.Context, userName, password string) (*services.Token, error) {
	d.mu.Lock()
	var found *models.User
	for _, u := range d.users {
		if u.UserName == userName {
			found = u
		}
	}
	ok := found != nil && d.pw[found.ID] == password
	d.mu.Unlock()

	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if !found.IsActive {
		return nil, common.ErrorInactive
	}
	tok, err := d.tokens.IssueFor(found.ID)
	if err != nil {
		return nil, err
	}
	return &services.Token{AccessToken: tok, TokenType: common.BearerScheme}, nil
}

type testEnv struct {
	srv    *GRPCServer
	dir    *fakeDirectory
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte("grpc-secret"), "HS256", time.Hour, nil)
	require.NoError(t, err)
	dir := newFakeDirectory(tokens)
	logger := logging.NewNop()
	chain := auth.NewChain(tokens, dir, logger)
	return &testEnv{
		srv:    NewGRPCServer("127.0.0.1:0", logger, dir, chain, time.Second),
		dir:    dir,
		tokens: tokens,
	}
}

func (e *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := e.tokens.IssueFor(u.ID)
	require.NoError(t, err)
	return tok
}
