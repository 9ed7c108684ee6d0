package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	msgNotFound              = "User not found"
	msgConflict              = "Username or email already exists"
	msgUnauthorized          = "Could not validate credentials"
	msgBadLogin              = "Incorrect username or password"
	msgNotAuthenticated      = "Not authenticated"
	msgInactive              = "Inactive user"
	msgInsufficientPrivilege = "The user doesn't have enough privileges"
	msgInternal              = "internal error"
)

// toStatus maps a service error to a gRPC status. Internal failures are
// logged and reported without detail.
func toStatus(ctx context.Context, logger logging.Logger, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, msgNotFound)
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, msgConflict)
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, msgUnauthorized)
	case errors.Is(err, common.ErrorInactive):
		return status.Error(codes.PermissionDenied, msgInactive)
	case errors.Is(err, common.ErrorInsufficientPrivilege):
		return status.Error(codes.PermissionDenied, msgInsufficientPrivilege)
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}
}
