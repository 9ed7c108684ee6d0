package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server"
	"github.com/dmitrijs2005/gophident/internal/server/config"
)

type runner interface {
	Run(ctx context.Context) error
}

type appFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (runner, error)

func newServerApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (runner, error) {
	return server.NewApp(ctx, cfg, logger)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	zl, err := logging.NewZap(logging.ZapConfig{
		Level:  cfg.LogLevel,
		Dev:    cfg.LogDev,
		File:   cfg.LogFile,
		MaxAge: 7 * 24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.NewZapLogger(zl)

	code := run(context.Background(), cfg, logger, newServerApp)
	_ = logger.Sync()
	os.Exit(code)
}

// run returns the process exit status: 1 when startup or serving fails.
func run(ctx context.Context, cfg *config.Config, logger logging.Logger, newApp appFactory) int {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		return 1
	}
	return 0
}
