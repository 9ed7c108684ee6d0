package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/server/auth"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type accessLevel int

const (
	levelPublic accessLevel = iota
	levelActive
	levelSuperuser
)

// methods not listed here require an active user
var methodLevels = map[string]accessLevel{
	FullMethod(MethodPing):       levelPublic,
	FullMethod(MethodCreateUser): levelPublic,
	FullMethod(MethodGetUser):    levelPublic,
	FullMethod(MethodLogin):      levelPublic,
	FullMethod(MethodGetMe):      levelActive,
	FullMethod(MethodUpdateUser): levelActive,
	FullMethod(MethodDeleteUser): levelActive,
	FullMethod(MethodListUsers):  levelSuperuser,
}

type ctxKey struct{}

// UserFromContext returns the caller resolved by the access interceptor.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// bearerToken extracts the token from "authorization: Bearer <token>".
func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get(common.AuthorizationHeaderName) {
		scheme, token, found := strings.Cut(strings.TrimSpace(v), " ")
		if found && strings.EqualFold(scheme, common.BearerScheme) && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	return "", false
}

func (s *GRPCServer) resolver(level accessLevel) auth.Resolver {
	if level == levelSuperuser {
		return s.chain.CurrentSuperuser
	}
	return s.chain.CurrentActiveUser
}

// accessTokenInterceptor resolves the caller for every non-public method
// and stores it in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	level, ok := methodLevels[info.FullMethod]
	if !ok {
		level = levelActive
	}
	if level == levelPublic {
		return handler(ctx, req)
	}

	token, ok := bearerToken(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgNotAuthenticated)
	}

	user, err := s.resolver(level)(ctx, token)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}

	return handler(withUser(ctx, user), req)
}

// loggingInterceptor logs every call with its outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}
