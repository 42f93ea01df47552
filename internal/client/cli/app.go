package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sujinchoi3/my-todolist/internal/client/client"
	"github.com/sujinchoi3/my-todolist/internal/client/config"
	"github.com/sujinchoi3/my-todolist/internal/client/services"
	"github.com/sujinchoi3/my-todolist/internal/logging"
)

const restoreTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.RWMutex
	user *services.User
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	gw, err := client.NewGateway(client.Options{
		BaseURL:        c.ServerURL,
		Timeout:        c.RequestTimeout,
		Logger:         logger,
		OnUnauthorized: app.sessionExpired,
	})
	if err != nil {
		return nil, err
	}

	app.authService = services.NewAuthService(gw)
	return app, nil
}

// Run restores a previous session if possible and then blocks in the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to the todo-list CLI (type 'help' for commands)")

	rctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	u, err := a.authService.Restore(rctx)
	cancel()
	switch {
	case err == nil:
		a.setUser(u)
		printlnFn("Welcome back,", u.Name)
	case !errors.Is(err, services.ErrNoSession):
		printlnFn("Could not restore session:", describe(err))
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) setUser(u *services.User) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
}

func (a *App) currentUser() *services.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *App) isLoggedIn() bool {
	return a.currentUser() != nil
}

func (a *App) status() string {
	if u := a.currentUser(); u != nil {
		return "(" + u.Email + ")"
	}
	return "(logged out)"
}

// sessionExpired is the gateway's OnUnauthorized hook.
func (a *App) sessionExpired() {
	if a.currentUser() == nil {
		return
	}
	a.setUser(nil)
	printlnFn("Your session has expired, please log in.")
}
