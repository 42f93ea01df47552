package session

import (
	"context"
	"errors"

	"github.com/sujinchoi3/my-todolist/internal/logging"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

var errEmptyToken = errors.New("refresh returned an empty token")

// RefreshFunc performs one refresh exchange and returns the new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Coordinator runs at most one refresh exchange at a time. Callers that
// arrive while an exchange is in flight wait for and share its result.
type Coordinator struct {
	group   singleflight.Group
	store   TokenStore
	refresh RefreshFunc
	logger  logging.Logger
}

func NewCoordinator(store TokenStore, refresh RefreshFunc, logger logging.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		refresh: refresh,
		logger:  logger.With("module", "session"),
	}
}

// Renew returns a fresh access token and true, or "" and false when the
// exchange fails. A successful token is also written to the store. Renew
// never clears the store; that is left to the caller.
//
// If ctx is cancelled the caller stops waiting, but the shared exchange
// keeps running for the other waiters.
func (c *Coordinator) Renew(ctx context.Context) (string, bool) {
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(refreshKey, func() (any, error) {
		token, err := c.refresh(detached)
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", errEmptyToken
		}
		c.store.Set(token)
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug(ctx, "token renewal failed", "error", res.Err, "shared", res.Shared)
			return "", false
		}
		return res.Val.(string), true
	}
}
