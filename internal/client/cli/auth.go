package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sujinchoi3/my-todolist/internal/client/client"
	"github.com/sujinchoi3/my-todolist/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup prompts for email, name and password and creates an account. The
// user still has to log in afterwards.
func (a *App) Signup(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	u, err := a.authService.Signup(ctx, email, string(password), name)
	if err != nil {
		return err
	}

	printlnFn("Account created for", u.Email+". You can log in now.")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	u, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.setUser(u)
	printlnFn("Logged in as", u.Name)
	return nil
}

// Whoami asks the server who the current session belongs to.
func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not logged in.")
		return nil
	}

	u, err := a.authService.Me(ctx)
	if err != nil {
		return err
	}

	a.setUser(u)
	printlnFn(fmt.Sprintf("%s <%s> id=%s", u.Name, u.Email, u.ID))
	return nil
}

// Logout ends the session. The local state is reset even when the server
// cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.setUser(nil)
	if err != nil {
		return err
	}
	printlnFn("Logged out.")
	return nil
}

// describe turns errors into short user-facing text.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	default:
		return err.Error()
	}
}
