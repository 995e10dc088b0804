// Package server wires the configuration, database, services and HTTP
// router together and runs them until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/cryptox"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/auth"
	"github.com/dmitrijs2005/authcrud/internal/server/config"
	"github.com/dmitrijs2005/authcrud/internal/server/credentials"
	"github.com/dmitrijs2005/authcrud/internal/server/httpapi"
	"github.com/dmitrijs2005/authcrud/internal/server/middleware"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcrud/internal/server/scheduler"
	"github.com/dmitrijs2005/authcrud/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	server    *http.Server
	scheduler *scheduler.Scheduler
}

// NewApp connects to the database, applies migrations and builds the HTTP
// server. A database that cannot be reached is fatal.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	app, err := build(c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// build wires everything that does not need I/O.
func build(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	app := &App{config: c, logger: logger, db: db}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	codec := auth.NewTokenCodec(
		[]byte(c.AccessTokenSecret), []byte(c.RefreshTokenSecret),
		c.AccessTokenLifetime, c.RefreshTokenLifetime,
	)
	store := credentials.NewStore(rm.Users(db), cryptox.NewPasswordHasher(c.BcryptCost), logger)
	sessions := services.NewSessionService(store, codec, logger, services.WithAuthObserver(metrics))

	content, err := services.NewContentService(db, rm)
	if err != nil {
		return nil, err
	}

	var limiter middleware.Limiter
	if c.RateLimitRequests > 0 {
		limiter, app.redis = newLimiter(c)
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Log:          logger,
		Verifier:     codec,
		Sessions:     sessions,
		Users:        services.NewUserService(store),
		Persons:      services.NewPersonService(db, rm),
		Content:      content,
		Media:        services.NewMediaService(db, rm, c),
		Metrics:      metrics,
		Gatherer:     reg,
		Limiter:      limiter,
		Ready:        db.PingContext,
		CORSOrigins:  c.CORSOrigins,
		MaxBodyBytes: c.MaxBodyBytes,
	})

	app.server = &http.Server{
		Addr:              c.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if c.CleanupSchedule != "" {
		s, err := scheduler.New(c.CleanupSchedule, sessions, logger)
		if err != nil {
			return nil, err
		}
		app.scheduler = s
	}

	return app, nil
}

// newLimiter shares counters through Redis when an address is configured.
func newLimiter(c *config.Config) (middleware.Limiter, *redis.Client) {
	if c.RedisAddr == "" {
		return middleware.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow), nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	return middleware.NewRedisLimiter(client, c.RateLimitRequests, c.RateLimitWindow, "authcrud:ratelimit"), client
}

func (app *App) startHTTPServer(ctx context.Context) error {
	app.logger.Info(ctx, "http.listen", "addr", app.server.Addr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (app *App) shutdown(ctx context.Context) error {
	<-ctx.Done()
	app.logger.Info(context.Background(), "http.shutdown")

	sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Run serves until SIGINT, SIGTERM or SIGQUIT, or until ctx is done, then
// drains in-flight requests and releases the database.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.startHTTPServer(ctx) })
	g.Go(func() error { return app.shutdown(ctx) })
	if app.scheduler != nil {
		g.Go(func() error { return app.scheduler.Run(ctx) })
	}
	return g.Wait()
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "db.close", "error", err)
		}
	}
}
