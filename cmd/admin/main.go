package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophident/internal/flagx"
	"github.com/dmitrijs2005/gophident/internal/logging"
	"github.com/dmitrijs2005/gophident/internal/server"
	"github.com/dmitrijs2005/gophident/internal/server/admin"
	"github.com/dmitrijs2005/gophident/internal/server/config"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/repomanager"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin create-superuser -u <username> -e <email> [-d dsn] [-c config.json]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "create-superuser" {
		usage()
	}

	logger := logging.NewSlogText(os.Stderr, os.Getenv("GOPHIDENT_LOG_LEVEL"))
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error(ctx, "config", "error", err)
		os.Exit(1)
	}

	m := repomanager.NewPostgresRepositoryManager()
	db, err := server.OpenDB(ctx, cfg.DatabaseDSN, m)
	if err != nil {
		logger.Error(ctx, "database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users, _, err := server.NewUserService(cfg, db, m, logger)
	if err != nil {
		logger.Error(ctx, "user service", "error", err)
		os.Exit(1)
	}

	args := flagx.FilterArgs(os.Args[2:], []string{"-u", "-e"})
	if _, err := admin.CreateSuperuser(ctx, args, users, admin.TerminalPasswordReader(os.Stdin, os.Stderr), logger); err != nil {
		logger.Error(ctx, "create-superuser", "error", err)
		db.Close()
		os.Exit(1)
	}
}
