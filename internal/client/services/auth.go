// Package services contains application services for the todo-list client.
// This file defines the authentication service: signup, login, logout,
// session restore and loading the current user.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sujinchoi3/my-todolist/internal/client/client"
	"github.com/sujinchoi3/my-todolist/internal/client/session"
)

// ErrNoSession is returned by Restore when the refresh cookie is missing or
// no longer valid.
var ErrNoSession = errors.New("no session to restore")

// User is the public view of an account.
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Transport is the part of client.Gateway used by AuthService.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Tokens() session.TokenStore
	Renew(ctx context.Context) (string, bool)
}

// AuthService defines authentication operations for the CLI.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (*User, error)
	Me(ctx context.Context) (*User, error)
}

type authService struct {
	t Transport
}

// NewAuthService constructs an AuthService bound to the given transport.
func NewAuthService(t Transport) AuthService {
	return &authService{t: t}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Signup creates an account. It does not log the user in.
func (a *authService) Signup(ctx context.Context, email, password, name string) (*User, error) {
	var u User
	if err := a.t.Post(ctx, "/auth/signup", credentials{Email: email, Password: password, Name: name}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and caches the access token. The refresh cookie is
// kept by the transport's cookie jar.
func (a *authService) Login(ctx context.Context, email, password string) (*User, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		User        User   `json:"user"`
	}
	if err := a.t.Post(ctx, "/auth/login", credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: empty access token")
	}
	a.t.Tokens().Set(resp.AccessToken)
	return &resp.User, nil
}

// Logout tells the server to drop the refresh cookie. The local token is
// cleared even when that call fails.
func (a *authService) Logout(ctx context.Context) error {
	defer a.t.Tokens().Clear()
	return a.t.Post(ctx, "/auth/logout", nil, nil)
}

// Restore resumes a session from the refresh cookie and loads the user.
func (a *authService) Restore(ctx context.Context) (*User, error) {
	if _, ok := a.t.Renew(ctx); !ok {
		return nil, ErrNoSession
	}
	return a.Me(ctx)
}

func (a *authService) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.t.Get(ctx, "/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ Transport = (*client.Gateway)(nil)
