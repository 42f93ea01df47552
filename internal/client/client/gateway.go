package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/sujinchoi3/my-todolist/internal/client/session"
	"github.com/sujinchoi3/my-todolist/internal/common"
	"github.com/sujinchoi3/my-todolist/internal/logging"
	"golang.org/x/net/publicsuffix"
)

const (
	refreshPath  = "/auth/refresh"
	loginPath    = "/auth/login"
	maxErrorBody = 64 << 10
)

// Options configures a Gateway. Only BaseURL is required.
type Options struct {
	// BaseURL includes any base path, e.g. "http://localhost:3000/api".
	BaseURL string
	Timeout time.Duration
	Store   session.TokenStore
	Logger  logging.Logger
	// OnUnauthorized runs after a failed renewal has cleared the token. It
	// never runs for 401s from /auth/login or /auth/refresh.
	OnUnauthorized func()
}

// Gateway sends authenticated JSON requests and renews the access token
// on 401 responses.
type Gateway struct {
	baseURL string
	http    *http.Client
	store   session.TokenStore
	coord   *session.Coordinator
	logger  logging.Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

func NewGateway(opts Options) (*Gateway, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	if opts.Store == nil {
		opts.Store = session.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	g := &Gateway{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           &http.Client{Jar: jar, Timeout: opts.Timeout},
		store:          opts.Store,
		logger:         opts.Logger.With("module", "gateway"),
		onUnauthorized: opts.OnUnauthorized,
	}
	g.coord = session.NewCoordinator(g.store, g.refresh, opts.Logger)
	return g, nil
}

// Tokens exposes the token cache.
func (g *Gateway) Tokens() session.TokenStore { return g.store }

// Renew runs (or joins) a refresh exchange. See session.Coordinator.
func (g *Gateway) Renew(ctx context.Context) (string, bool) {
	return g.coord.Renew(ctx)
}

// SetOnUnauthorized replaces the hook run after a failed renewal.
func (g *Gateway) SetOnUnauthorized(fn func()) {
	g.mu.Lock()
	g.onUnauthorized = fn
	g.mu.Unlock()
}

func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends a JSON POST. Like Do, a 401 from /auth/login or /auth/refresh
// is returned as is, without renewal.
func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	return g.Do(ctx, http.MethodPost, path, in, out)
}

func (g *Gateway) Put(ctx context.Context, path string, in, out any) error {
	return g.Do(ctx, http.MethodPut, path, in, out)
}

func (g *Gateway) Patch(ctx context.Context, path string, in, out any) error {
	return g.Do(ctx, http.MethodPatch, path, in, out)
}

func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request. in, when non-nil, is JSON-encoded; a 2xx body other
// than 204 is decoded into out when out is non-nil. A 401 triggers one
// renewal and at most one retry, except on the login and refresh routes
// whose 401s are answers rather than expired sessions.
func (g *Gateway) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	token, _ := g.store.Get()
	resp, err := g.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && path != loginPath && path != refreshPath {
		drain(resp)

		newToken, ok := g.coord.Renew(ctx)
		if !ok {
			// the caller gave up; the shared exchange may still succeed
			if err := ctx.Err(); err != nil {
				return err
			}
			g.store.Clear()
			g.unauthorized()
			return &APIError{StatusCode: http.StatusUnauthorized, Code: string(common.CodeUnauthorized), Message: common.ErrUnauthorized.Message}
		}

		resp, err = g.send(ctx, method, path, body, newToken)
		if err != nil {
			return err
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *Gateway) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

// refresh is the raw exchange behind the coordinator. It carries only the
// refresh cookie and never recurses into renewal.
func (g *Gateway) refresh(ctx context.Context) (string, error) {
	resp, err := g.send(ctx, http.MethodPost, refreshPath, nil, "")
	if err != nil {
		return "", err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	return out.AccessToken, nil
}

func (g *Gateway) unauthorized() {
	g.mu.RLock()
	fn := g.onUnauthorized
	g.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func readAPIError(resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Code: string(common.CodeUnknown), Message: fallbackMessage}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(b, &body) == nil {
		if body.Code != "" {
			e.Code = body.Code
		}
		if body.Message != "" {
			e.Message = body.Message
		}
	}
	return e
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
