package renderer_test

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

	"github.com/jonesrussell/north-cloud/link-validator/internal/circuitbreaker"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
)

const (
	testPageURL   = "https://example.com/article"
	testToken     = "secret-token"
	testTimeout   = 100 * time.Millisecond
	testWaitUntil = "domcontentloaded"
)

func newClient(t *testing.T, serverURL string, mutate func(*renderer.Config)) *renderer.Client {
	t.Helper()

	cfg := renderer.Config{URL: serverURL, Timeout: time.Second}
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := renderer.New(cfg, logger.NewNop(), nil)
	require.NoError(t, err)
	return c
}

func requireKind(t *testing.T, err error, want renderer.Kind) {
	t.Helper()

	require.Error(t, err)
	kind, ok := renderer.KindOf(err)
	require.True(t, ok, "expected *renderer.Error, got %T: %v", err, err)
	assert.Equal(t, want, kind)
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := renderer.New(renderer.Config{}, logger.NewNop(), nil)
	require.Error(t, err)
}

func TestRender_SendsContractRequest(t *testing.T) {
	t.Parallel()

	var got struct {
		URL       string `json:"url"`
		WaitUntil string `json:"wait_until"`
		Viewport  struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"viewport"`
	}
	var gotAuth, gotPath, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html":"<html><body>hello</body></html>"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", func(cfg *renderer.Config) {
		cfg.Token = testToken
		cfg.WaitUntil = testWaitUntil
	})

	page, err := c.Render(context.Background(), testPageURL)
	require.NoError(t, err)

	assert.Equal(t, "<html><body>hello</body></html>", page.HTML)
	assert.Equal(t, testPageURL, page.URL)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/html", gotPath)
	assert.Equal(t, "Bearer "+testToken, gotAuth)
	assert.Equal(t, testPageURL, got.URL)
	assert.Equal(t, testWaitUntil, got.WaitUntil)
	assert.Equal(t, renderer.DefaultViewportWidth, got.Viewport.Width)
	assert.Equal(t, renderer.DefaultViewportHeight, got.Viewport.Height)
}

func TestRender_RawHTMLResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>plain page</body></html>"))
	}))
	defer srv.Close()

	page, err := newClient(t, srv.URL, nil).Render(context.Background(), testPageURL)
	require.NoError(t, err)
	assert.Equal(t, "<html><body>plain page</body></html>", page.HTML)
}

func TestRender_DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	page, err := newClient(t, srv.URL, nil).Render(context.Background(), testPageURL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", page.HTML)
}

func TestRender_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   renderer.Kind
	}{
		{name: "422 invalid url", status: http.StatusUnprocessableEntity, want: renderer.KindInvalidURL},
		{name: "400 invalid url", status: http.StatusBadRequest, want: renderer.KindInvalidURL},
		{name: "500 service error", status: http.StatusInternalServerError, want: renderer.KindServiceError},
		{name: "503 service error", status: http.StatusServiceUnavailable, want: renderer.KindServiceError},
		{name: "429 service error", status: http.StatusTooManyRequests, want: renderer.KindServiceError},
		{name: "401 service error", status: http.StatusUnauthorized, want: renderer.KindServiceError},
		{name: "malformed json", status: http.StatusOK, body: `{"html": `, want: renderer.KindMalformed},
		{name: "json without html", status: http.StatusOK, body: `{"error":"none"}`, want: renderer.KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL, nil).Render(context.Background(), testPageURL)
			requireKind(t, err, tt.want)
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, renderer.StatusCodeOf(err))
			}
		})
	}
}

func TestRender_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) { cfg.Timeout = testTimeout })

	start := time.Now()
	_, err := c.Render(context.Background(), testPageURL)

	requireKind(t, err, renderer.KindTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRender_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newClient(t, addr, nil).Render(context.Background(), testPageURL)
	requireKind(t, err, renderer.KindUnavailable)
}

func TestRender_CircuitOpensOnServiceErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) {
		cfg.BreakerFailureThreshold = 2
		cfg.BreakerCooldown = time.Hour
	})

	for range 2 {
		_, err := c.Render(context.Background(), testPageURL)
		requireKind(t, err, renderer.KindServiceError)
	}
	assert.Equal(t, circuitbreaker.StateOpen, c.CircuitState())

	_, err := c.Render(context.Background(), testPageURL)
	requireKind(t, err, renderer.KindUnavailable)
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load(), "open circuit must not reach the service")
}

func TestRender_TimeoutDuringHalfOpenReopensCircuit(t *testing.T) {
	t.Parallel()

	const cooldown = 200 * time.Millisecond

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) {
		cfg.Timeout = testTimeout
		cfg.BreakerFailureThreshold = 1
		cfg.BreakerCooldown = cooldown
	})

	_, err := c.Render(context.Background(), testPageURL)
	requireKind(t, err, renderer.KindServiceError)
	require.Equal(t, circuitbreaker.StateOpen, c.CircuitState())

	time.Sleep(cooldown + 50*time.Millisecond)

	_, err = c.Render(context.Background(), testPageURL)
	requireKind(t, err, renderer.KindTimeout)
	assert.Equal(t, circuitbreaker.StateOpen, c.CircuitState())

	_, err = c.Render(context.Background(), testPageURL)
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load())
}

func TestRender_TimeoutWhileClosedDoesNotTripCircuit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) {
		cfg.Timeout = testTimeout
		cfg.BreakerFailureThreshold = 1
	})

	for range 2 {
		_, err := c.Render(context.Background(), testPageURL)
		requireKind(t, err, renderer.KindTimeout)
	}
	assert.Equal(t, circuitbreaker.StateClosed, c.CircuitState())
}

func TestRender_InvalidURLDoesNotTripCircuit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) { cfg.BreakerFailureThreshold = 1 })

	for range 3 {
		_, err := c.Render(context.Background(), testPageURL)
		requireKind(t, err, renderer.KindInvalidURL)
	}
	assert.Equal(t, circuitbreaker.StateClosed, c.CircuitState())
}

func TestRender_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const limit = 2

	var mu sync.Mutex
	inFlight, peak := 0, 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html":"ok"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *renderer.Config) { cfg.MaxConcurrent = limit })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Render(context.Background(), testPageURL)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, limit)
}

func TestRender_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, srv.URL, nil).Render(ctx, testPageURL)
	requireKind(t, err, renderer.KindTimeout)
}
