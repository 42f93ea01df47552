// Package httpapi exposes the authentication API over HTTP/JSON: routing,
// the bearer-token session gate, refresh cookies, CORS and error mapping.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sujinchoi3/my-todolist/internal/logging"
	"github.com/sujinchoi3/my-todolist/internal/server/auth"
	"github.com/sujinchoi3/my-todolist/internal/server/models"
	"github.com/sujinchoi3/my-todolist/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Authenticator is the business logic behind the /auth routes.
type Authenticator interface {
	Signup(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context)
	Me(ctx context.Context, userID string) (*models.User, error)
}

// AccessVerifier checks access tokens presented on protected routes.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.Identity, error)
}

// Settings configures the HTTP transport.
type Settings struct {
	Address     string
	BasePath    string
	CORSOrigins []string
	// SecureCookies marks the refresh cookie Secure (production).
	SecureCookies bool
	// RefreshCookieMaxAge should match the refresh token lifetime.
	RefreshCookieMaxAge time.Duration
}

type HTTPServer struct {
	settings Settings
	basePath string
	auth     Authenticator
	tokens   AccessVerifier
	logger   logging.Logger
}

func NewHTTPServer(s Settings, l logging.Logger, a Authenticator, v AccessVerifier) *HTTPServer {
	return &HTTPServer{
		settings: s,
		basePath: normalizeBasePath(s.BasePath),
		auth:     a,
		tokens:   v,
		logger:   l.With("module", "http_server"),
	}
}

// Handler returns the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	p := s.basePath

	mux.HandleFunc("POST "+p+"/auth/signup", s.handleSignup)
	mux.HandleFunc("POST "+p+"/auth/login", s.handleLogin)
	mux.HandleFunc("POST "+p+"/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST "+p+"/auth/logout", s.handleLogout)
	mux.Handle("GET "+p+"/auth/me", s.RequireAuth(http.HandlerFunc(s.handleMe)))
	mux.HandleFunc("GET "+p+"/health", s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = newCORS(s.settings.CORSOrigins).wrap(h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.settings.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String(), "base_path", s.basePath)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
