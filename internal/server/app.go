// Package server initializes and runs the API server. It selects the
// storage backends, wires services into the REST transport and handles
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/logging"
	"github.com/dmitrijs2005/tzikbal/internal/server/auth"
	"github.com/dmitrijs2005/tzikbal/internal/server/config"
	"github.com/dmitrijs2005/tzikbal/internal/server/oauth"
	"github.com/dmitrijs2005/tzikbal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tzikbal/internal/server/rest"
	"github.com/dmitrijs2005/tzikbal/internal/server/services"
	"github.com/redis/go-redis/v9"
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, !c.Production)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	rm, err := app.initStorage(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	states, err := app.initStateStore(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	userService := services.NewUserService(app.db, rm,
		auth.NewBcryptHasher(common.BcryptCost),
		auth.NewTokenIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration),
		logger,
	)
	mediaService := services.NewMediaService(c, logger)

	// left nil when Google is not configured so the routes answer 503
	var google rest.IdentityProvider
	if c.GoogleEnabled() {
		google = oauth.NewGoogleProvider(c.GoogleClientID, c.GoogleClientSecret, c.GoogleCallbackURL)
	} else {
		logger.Warn(ctx, "google oauth is not configured")
	}

	app.server = rest.NewServer(rest.Params{
		Config: c,
		Logger: logger,
		Users:  userService,
		Media:  mediaService,
		Google: google,
		States: states,
	})

	return app, nil
}

// initStorage opens PostgreSQL and applies migrations, or falls back to the
// in-memory store when no DSN is configured.
func (app *App) initStorage(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "DATABASE_DSN is empty, users are kept in memory")
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return rm, nil
}

func (app *App) initStateStore(ctx context.Context) (oauth.StateStore, error) {
	if app.config.RedisAddr == "" {
		return oauth.NewMemoryStateStore(oauth.StateTTL), nil
	}

	app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return oauth.NewRedisStateStore(app.redis, oauth.StateTTL), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", app.config.Version)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "db close", "error", err)
		}
	}
}
