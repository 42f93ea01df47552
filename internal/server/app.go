// Package server wires and runs the todo-list API server: it opens the
// database, applies migrations, builds the auth service and serves HTTP
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sujinchoi3/my-todolist/internal/cryptox"
	"github.com/sujinchoi3/my-todolist/internal/logging"
	"github.com/sujinchoi3/my-todolist/internal/server/auth"
	"github.com/sujinchoi3/my-todolist/internal/server/config"
	"github.com/sujinchoi3/my-todolist/internal/server/httpapi"
	"github.com/sujinchoi3/my-todolist/internal/server/repositories/repomanager"
	"github.com/sujinchoi3/my-todolist/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.HTTPServer
}

// NewApp validates c, connects to the database and migrates it, and builds
// the HTTP server. The caller owns the returned App and must call Close.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewIssuer(
		auth.Key{Secret: []byte(c.AccessTokenSecret), Validity: c.AccessTokenValidityDuration},
		auth.Key{Secret: []byte(c.RefreshTokenSecret), Validity: c.RefreshTokenValidityDuration},
	)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations: %w", err)
	}

	svc := services.NewAuthService(db, rm, cryptox.NewBcryptHasher(cryptox.DefaultCost), issuer, logger)

	hs := httpapi.NewHTTPServer(httpapi.Settings{
		Address:             c.HTTPAddr,
		BasePath:            c.BasePath,
		CORSOrigins:         c.CORSOrigins,
		SecureCookies:       c.Production,
		RefreshCookieMaxAge: issuer.RefreshValidity(),
	}, logger, svc, issuer)

	return &App{config: c, logger: logger, db: db, http: hs}, nil
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
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver, "production", app.config.Production)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database pool.
func (app *App) Close() error {
	return app.db.Close()
}
