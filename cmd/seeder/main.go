package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authcrud/internal/cryptox"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/config"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcrud/internal/server/seeder"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	opts, err := seeder.ParseOptions(os.Args[1:])
	if err != nil {
		return fmt.Errorf("%w\nusage: seeder -import|-delete [-collection=users|persons] [-prompt-admin-password]", err)
	}

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("db migrations error: %w", err)
	}

	s := seeder.New(db, rm, cryptox.NewPasswordHasher(cfg.BcryptCost), logger)

	if opts.Delete {
		return s.Delete(ctx, opts.Collection)
	}

	data, err := seeder.Default()
	if err != nil {
		return err
	}
	if opts.PromptAdminPassword {
		pw, err := seeder.PromptPassword(os.Stdout)
		if err != nil {
			return err
		}
		data.SetAdminPassword(pw)
	}
	return s.Import(ctx, opts.Collection, data)
}
