// Package server wires storage, the identity services and the gRPC
// transport together and runs them until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophident/internal/cryptox"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server/auth"
	"github.com/dmitrijs2005/gophident/internal/server/config"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophident/internal/server/services"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	gs "github.com/dmitrijs2005/gophident/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sqlx.DB
	userService *services.UserService
	chain       *auth.Chain
}

// OpenDB opens the pgx-backed pool and applies pending migrations.
func OpenDB(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewUserService builds the user directory and the token service it
// issues tokens with.
func NewUserService(c *config.Config, db *sqlx.DB, m repomanager.RepositoryManager, logger logging.Logger) (*services.UserService, *auth.TokenService, error) {
	hasher, err := cryptox.NewPasswordHasher(c.HasherParams())
	if err != nil {
		return nil, nil, fmt.Errorf("password hasher: %w", err)
	}

	clock := clockwork.NewRealClock()
	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.SigningAlgorithm, c.AccessTokenValidityDuration, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("token service: %w", err)
	}

	us, err := services.NewUserService(db, m, hasher, tokens, clock, logger.With("module", "users"))
	if err != nil {
		return nil, nil, err
	}
	return us, tokens, nil
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	m := repomanager.NewPostgresRepositoryManager()

	db, err := OpenDB(ctx, c.DatabaseDSN, m)
	if err != nil {
		return nil, err
	}

	app, err := newApp(c, logger, db, m)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sqlx.DB, m repomanager.RepositoryManager) (*App, error) {
	us, tokens, err := NewUserService(c, db, m, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		chain:       auth.NewChain(tokens, us, logger.With("module", "auth")),
	}, nil
}

// Run serves until ctx is cancelled or the process receives SIGINT,
// SIGTERM or SIGQUIT, then closes the pool.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "closing database", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.chain, app.config.ShutdownTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		return err
	}

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
