package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server"
	"github.com/dmitrijs2005/authcrud/internal/server/config"
)

type runner interface {
	Run(ctx context.Context) error
}

var newApp = func(ctx context.Context, cfg *config.Config, logger logging.Logger) (runner, error) {
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	os.Exit(run(context.Background(), cfg, logger))
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) int {
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "config.invalid", "error", err)
		return 1
	}
	if cfg.UsesDevelopmentSecrets() {
		logger.Warn(ctx, "config.dev_secrets", "msg", "using built-in JWT secrets; never do this outside development")
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "app.init", "error", err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "app.run", "error", err)
		return 1
	}
	return 0
}
