// Package renderer is the client for the remote headless-browser rendering service.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/semaphore"

	"github.com/jonesrussell/north-cloud/link-validator/internal/circuitbreaker"
	"github.com/jonesrussell/north-cloud/link-validator/internal/httpclient"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
)

// maxResponseBodyBytes limits the size of rendered pages read into memory.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

const renderPath = "/html"

// Page is a successfully rendered document.
type Page struct {
	URL      string
	HTML     string
	Duration time.Duration
}

type renderRequest struct {
	URL       string   `json:"url"`
	WaitUntil string   `json:"wait_until"`
	Viewport  viewport `json:"viewport"`
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type renderResponse struct {
	HTML *string `json:"html"`
}

// Client renders pages through the service. It is safe for concurrent use.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	sem        *semaphore.Weighted
	breaker    *circuitbreaker.Breaker
	log        logger.Logger
	metrics    *metrics.Metrics
}

// New creates a render client. cfg.URL must be set.
func New(cfg Config, log logger.Logger, m *metrics.Metrics) (*Client, error) {
	cfg = cfg.WithDefaults()
	if !cfg.Enabled() {
		return nil, errors.New("renderer url is required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Client{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.URL, "/") + renderPath,
		httpClient: httpclient.New(httpclient.Config{MaxIdleConnsPerHost: cfg.MaxConcurrent}),
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		log:        log.With(logger.String("component", "renderer")),
		metrics:    m,
	}

	c.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		IsFailure:        countsAgainstCircuit,
		IsTrialFailure:   failsTrial,
		OnStateChange: func(from, to circuitbreaker.State) {
			c.log.Warn("Render circuit state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			c.metrics.SetCircuitState(int(to))
		},
	})

	return c, nil
}

// CircuitState returns the state of the service circuit breaker.
func (c *Client) CircuitState() circuitbreaker.State {
	return c.breaker.State()
}

// Render asks the service to render rawURL. Every failure is returned as *Error.
func (c *Client) Render(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, &Error{Kind: KindTimeout, Err: err}
	}
	defer c.sem.Release(1)

	start := time.Now()

	var page *Page
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		page, callErr = c.render(ctx, rawURL)
		return callErr
	})

	duration := time.Since(start)

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		err = &Error{Kind: KindUnavailable, Err: err}
	}

	outcome := "ok"
	if kind, ok := KindOf(err); ok {
		outcome = string(kind)
	}
	c.metrics.ObserveRender(outcome, duration)

	if err != nil {
		c.log.Debug("Render failed",
			logger.String("url", rawURL),
			logger.String("outcome", outcome),
			logger.Duration("duration", duration),
			logger.Error(err),
		)
		return nil, err
	}

	page.Duration = duration
	return page, nil
}

func (c *Client) render(ctx context.Context, rawURL string) (*Page, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(renderRequest{
		URL:       rawURL,
		WaitUntil: c.cfg.WaitUntil,
		Viewport:  viewport{Width: c.cfg.ViewportWidth, Height: c.cfg.ViewportHeight},
	})
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/html")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &Error{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		html, decodeErr := decodeBody(body, resp.Header.Get("Content-Type"))
		if decodeErr != nil {
			return nil, &Error{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: decodeErr}
		}
		return &Page{URL: rawURL, HTML: html}, nil
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		return nil, &Error{Kind: KindInvalidURL, StatusCode: resp.StatusCode}
	default:
		return nil, &Error{Kind: KindServiceError, StatusCode: resp.StatusCode}
	}
}

// decodeBody interprets a 200 response: a JSON object with an "html" field,
// or raw HTML in whatever charset the Content-Type declares.
func decodeBody(body []byte, contentType string) (string, error) {
	if looksLikeJSON(body, contentType) {
		var rr renderResponse
		if err := json.Unmarshal(body, &rr); err != nil {
			return "", fmt.Errorf("decode json response: %w", err)
		}
		if rr.HTML == nil {
			return "", errors.New("json response has no html field")
		}
		return *rr.HTML, nil
	}

	return decodeHTML(body, contentType)
}

// decodeHTML converts body to UTF-8. Bodies that are already valid UTF-8 and
// declare no other charset are returned as is.
func decodeHTML(body []byte, contentType string) (string, error) {
	if utf8.Valid(body) && !declaresForeignCharset(contentType) {
		return string(body), nil
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	return string(decoded), nil
}

func declaresForeignCharset(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	cs := strings.ToLower(params["charset"])
	return cs != "" && cs != "utf-8" && cs != "utf8"
}

func looksLikeJSON(body []byte, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return !strings.Contains(ct, "html") && len(trimmed) > 0 && trimmed[0] == '{'
}

func transportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindUnavailable, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
