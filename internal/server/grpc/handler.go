package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewStringValue("OK"),
	}}, nil
}

func (s *GRPCServer) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	draft, err := draftFromStruct(req)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	user, err := s.users.Create(ctx, draft)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return userToStruct(user), nil
}

func (s *GRPCServer) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	id, err := f.getString("id")
	if err == nil {
		err = f.rejectUnknown()
	}
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	user, err := s.users.Get(ctx, id.Value)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return userToStruct(user), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	userName, err := f.getString("username")
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	password, err := f.getString("password")
	if err == nil {
		err = f.rejectUnknown()
	}
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	token, err := s.users.Login(ctx, userName.Value, password.Value)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, msgBadLogin)
		}
		return nil, toStatus(ctx, s.logger, err)
	}

	s.logger.Info(ctx, "logged in", "username", userName.Value)
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"access_token": structpb.NewStringValue(token.AccessToken),
		"token_type":   structpb.NewStringValue(token.TokenType),
	}}, nil
}

func (s *GRPCServer) GetMe(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return userToStruct(user), nil
}

// UpdateUser changes the caller or, for superusers, any user. An absent
// id means the caller. Only superusers may change role and moderation flags.
func (s *GRPCServer) UpdateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	id, patch, err := patchFromStruct(req)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	if id == "" {
		id = actor.ID
	}

	if err := authorizeModify(actor, id); err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	if patch.TouchesPrivileges() && !actor.IsSuperuser {
		return nil, toStatus(ctx, s.logger, common.ErrorInsufficientPrivilege)
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return userToStruct(user), nil
}

func (s *GRPCServer) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	f := newFields(req)
	id, err := f.getString("id")
	if err == nil {
		err = f.rejectUnknown()
	}
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	target := id.Or(actor.ID)

	if err := authorizeModify(actor, target); err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	if err := s.users.Delete(ctx, target); err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return &structpb.Struct{}, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	limit, err := f.getInt("limit")
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	offset, err := f.getInt("offset")
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	list, err := s.users.List(ctx, limit.Value, offset.Value)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return usersToStruct(list), nil
}

// --- helpers below ---

func (s *GRPCServer) caller(ctx context.Context) (*models.User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgNotAuthenticated)
	}
	return user, nil
}

func authorizeModify(actor *models.User, targetID string) error {
	if actor.ID != targetID && !actor.IsSuperuser {
		return common.ErrorInsufficientPrivilege
	}
	return nil
}
