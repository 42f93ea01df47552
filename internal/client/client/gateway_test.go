package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sujinchoi3/my-todolist/internal/common"
)

// fakeAPI mimics the server: /auth/refresh hands out "fresh" while the
// refresh cookie is present, and /things only accepts the current token.
type fakeAPI struct {
	mu           sync.Mutex
	validToken   string
	refreshOK    bool
	refreshDelay time.Duration

	refreshCalls atomic.Int32
	thingsCalls  atomic.Int32
	authHeaders  []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: common.RefreshTokenCookieName, Value: "rt", Path: "/", HttpOnly: true})
		writeBody(w, http.StatusOK, map[string]any{"access_token": "initial"})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		time.Sleep(f.refreshDelay)
		if r.Header.Get("Authorization") != "" {
			writeBody(w, http.StatusBadRequest, map[string]any{"code": "UNEXPECTED_AUTH"})
			return
		}
		f.mu.Lock()
		ok := f.refreshOK
		f.mu.Unlock()
		if !ok {
			writeBody(w, http.StatusUnauthorized, map[string]any{"code": "REFRESH_TOKEN_EXPIRED", "message": "expired"})
			return
		}
		f.mu.Lock()
		f.validToken = "fresh"
		f.mu.Unlock()
		writeBody(w, http.StatusOK, map[string]any{"access_token": "fresh"})
	})
	mux.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		f.thingsCalls.Add(1)
		h := r.Header.Get("Authorization")
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, h)
		valid := f.validToken
		f.mu.Unlock()
		if h != "Bearer "+valid {
			writeBody(w, http.StatusUnauthorized, map[string]any{"code": "UNAUTHORIZED", "message": "Login required."})
			return
		}
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeBody(w, http.StatusOK, map[string]any{"ok": true, "method": r.Method})
		}
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	mux.HandleFunc("/conflict", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusConflict, map[string]any{"code": "CONFLICT", "message": "already there"})
	})
	return mux
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newGateway(t *testing.T, api *fakeAPI, hook func()) (*Gateway, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)

	g, err := NewGateway(Options{BaseURL: ts.URL + "/", Timeout: 5 * time.Second, OnUnauthorized: hook})
	require.NoError(t, err)
	return g, ts
}

// login stores the refresh cookie in the gateway's jar.
func login(t *testing.T, g *Gateway) {
	t.Helper()
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, g.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.co"}, &out))
	g.Tokens().Set(out.AccessToken)
}

func TestDo_NoTokenMeansNoHeader(t *testing.T) {
	api := &fakeAPI{validToken: "x"}
	g, _ := newGateway(t, api, nil)

	err := g.Get(context.Background(), "/things", nil)
	require.Error(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.authHeaders)
	assert.Equal(t, "", api.authHeaders[0], "no Authorization header without a token")
}

func TestDo_AttachesBearer(t *testing.T) {
	api := &fakeAPI{validToken: "initial"}
	g, _ := newGateway(t, api, nil)
	g.Tokens().Set("initial")

	var out map[string]any
	require.NoError(t, g.Get(context.Background(), "/things", &out))
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, int32(0), api.refreshCalls.Load())
}

func TestDo_RenewsAndRetriesOnce(t *testing.T) {
	api := &fakeAPI{validToken: "initial", refreshOK: true}
	g, _ := newGateway(t, api, func() { t.Fatal("hook must not run on successful renewal") })
	login(t, g)

	api.mu.Lock()
	api.validToken = "rotated-away"
	api.mu.Unlock()

	var out map[string]any
	require.NoError(t, g.Post(context.Background(), "/things", map[string]int{"n": 1}, &out))
	assert.Equal(t, "POST", out["method"])

	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, int32(2), api.thingsCalls.Load())

	tok, _ := g.Tokens().Get()
	assert.Equal(t, "fresh", tok)
}

func TestDo_SecondUnauthorizedIsSurfaced(t *testing.T) {
	var refreshCalls, thingsCalls atomic.Int32

	// refresh succeeds but the server keeps rejecting the retried request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
			writeBody(w, http.StatusOK, map[string]any{"access_token": "fresh"})
			return
		}
		thingsCalls.Add(1)
		writeBody(w, http.StatusUnauthorized, map[string]any{"code": "UNAUTHORIZED", "message": "nope"})
	}))
	defer ts.Close()

	g, err := NewGateway(Options{BaseURL: ts.URL})
	require.NoError(t, err)
	g.Tokens().Set("stale")

	err = g.Get(context.Background(), "/things", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "nope", apiErr.Message)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(1), refreshCalls.Load(), "no second renewal")
	assert.Equal(t, int32(2), thingsCalls.Load(), "exactly one retry")
}

func TestDo_FailedRenewalClearsAndRedirects(t *testing.T) {
	api := &fakeAPI{validToken: "other", refreshOK: false}
	var hookCalls atomic.Int32
	g, _ := newGateway(t, api, func() { hookCalls.Add(1) })
	g.Tokens().Set("stale")

	err := g.Get(context.Background(), "/things", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, string(common.CodeUnauthorized), apiErr.Code)
	assert.Equal(t, int32(1), hookCalls.Load())

	_, ok := g.Tokens().Get()
	assert.False(t, ok, "token cleared")
	assert.Equal(t, int32(1), api.thingsCalls.Load(), "no retry without a token")
}

func TestDo_CancelDuringRenewalKeepsSession(t *testing.T) {
	release := make(chan struct{})
	refreshStarted := make(chan struct{})
	var hookCalls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			close(refreshStarted)
			<-release
			writeBody(w, http.StatusOK, map[string]any{"access_token": "fresh"})
			return
		}
		writeBody(w, http.StatusUnauthorized, map[string]any{"code": "UNAUTHORIZED", "message": "Login required."})
	}))
	defer ts.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	g, err := NewGateway(Options{BaseURL: ts.URL, OnUnauthorized: func() { hookCalls.Add(1) }})
	require.NoError(t, err)
	g.Tokens().Set("stale")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Get(ctx, "/things", nil) }()

	<-refreshStarted
	cancel()

	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Get did not return after cancel")
	}
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(0), hookCalls.Load(), "cancel is not a session expiry")

	close(release)
	assert.Eventually(t, func() bool {
		tok, _ := g.Tokens().Get()
		return tok == "fresh"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), hookCalls.Load())
}

func TestDo_ConcurrentStaleRequestsShareOneRefresh(t *testing.T) {
	api := &fakeAPI{validToken: "initial", refreshOK: true, refreshDelay: 100 * time.Millisecond}
	g, _ := newGateway(t, api, nil)
	login(t, g)

	api.mu.Lock()
	api.validToken = "expired-now"
	api.mu.Unlock()

	const n = 2
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Get(context.Background(), "/things", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.refreshCalls.Load())
}

func TestDo_LoginUnauthorizedDoesNotRenew(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			t.Error("login 401 must not trigger a refresh")
		}
		writeBody(w, http.StatusUnauthorized, map[string]any{"code": "INVALID_CREDENTIALS", "message": "bad"})
	}))
	defer ts.Close()

	g, err := NewGateway(Options{BaseURL: ts.URL})
	require.NoError(t, err)

	err = g.Post(context.Background(), "/auth/login", map[string]string{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
}

func TestDo_ErrorMapping(t *testing.T) {
	api := &fakeAPI{}
	g, _ := newGateway(t, api, nil)

	err := g.Get(context.Background(), "/broken", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, string(common.CodeUnknown), apiErr.Code)
	assert.Equal(t, "request failed", apiErr.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))

	err = g.Put(context.Background(), "/conflict", map[string]int{}, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)
	assert.Equal(t, "already there", apiErr.Message)
}

func TestDo_NoContent(t *testing.T) {
	api := &fakeAPI{validToken: "initial"}
	g, _ := newGateway(t, api, nil)
	g.Tokens().Set("initial")

	out := map[string]any{"untouched": true}
	require.NoError(t, g.Delete(context.Background(), "/things", &out))
	assert.Equal(t, map[string]any{"untouched": true}, out)

	require.NoError(t, g.Patch(context.Background(), "/things", map[string]int{}, &out))
	assert.Equal(t, "PATCH", out["method"])
}

func TestDo_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	g, err := NewGateway(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	err = g.Get(context.Background(), "/things", nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSetOnUnauthorized(t *testing.T) {
	api := &fakeAPI{validToken: "other"}
	g, _ := newGateway(t, api, nil)

	called := false
	g.SetOnUnauthorized(func() { called = true })

	_ = g.Get(context.Background(), "/things", nil)
	assert.True(t, called)
}
