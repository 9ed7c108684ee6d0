// Package grpc exposes the identity service over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/auth"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"github.com/dmitrijs2005/gophident/internal/server/services"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// UserDirectory is the part of services.UserService the transport uses.
type UserDirectory interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, draft models.UserDraft) (*models.User, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Login(ctx context.Context, userName, password string) (*services.Token, error)
}

type GRPCServer struct {
	address         string
	users           UserDirectory
	chain           *auth.Chain
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewGRPCServer(address string, l logging.Logger, users UserDirectory, chain *auth.Chain, shutdownTimeout time.Duration) *GRPCServer {
	return &GRPCServer{
		address:         address,
		logger:          l.With("module", "grpc_server"),
		users:           users,
		chain:           chain,
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	)
	RegisterIdentityServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully. Calls still running after the shutdown timeout are cut off.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		if s.shutdownTimeout <= 0 {
			<-done
			return
		}
		select {
		case <-done:
		case <-time.After(s.shutdownTimeout):
			s.logger.Warn(context.Background(), "graceful stop timed out, forcing")
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// a stop that lands before Serve starts is still a clean shutdown
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
