// Package fetcher checks URLs with a plain HEAD request when the rendering
// service cannot resolve them.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/httpclient"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
)

// Status codes with a dedicated mapping.
const (
	statusSuccessLow   = 200
	statusRedirectLow  = 300
	statusUnauthorized = 401
	statusForbidden    = 403
	statusNotFound     = 404
	statusGone         = 410
)

// Reason strings for status-derived verdicts.
const (
	reasonNotFound  = "404_not_found"
	reasonGone      = "410_gone"
	reasonHTTPError = "http_error"
)

// drainLimit caps how much of a GET retry body is read before closing.
const drainLimit = 64 * 1024

// Result is the outcome of one check.
type Result struct {
	Status domain.Status
	Reason string
	// StatusCode is the final HTTP status, or 0 when no response arrived.
	StatusCode int
	// Transient marks timeouts and connection failures. They describe the
	// network at check time, not the page.
	Transient bool
}

// Checker performs fallback HEAD checks. It is safe for concurrent use.
type Checker struct {
	cfg     Config
	client  *http.Client
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewChecker creates a Checker.
func NewChecker(cfg Config, log logger.Logger, m *metrics.Metrics) *Checker {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	return &Checker{
		cfg: cfg,
		client: httpclient.New(httpclient.Config{
			MaxIdleConnsPerHost: cfg.MaxConcurrent,
			CheckRedirect:       RedirectPolicy(cfg.MaxRedirects),
		}),
		log:     log.With(logger.String("component", "fallback")),
		metrics: m,
	}
}

// MaxConcurrent returns the configured per-batch check limit.
func (c *Checker) MaxConcurrent() int {
	return c.cfg.MaxConcurrent
}

// Check issues a HEAD request for rawURL and classifies the response.
// Servers that refuse HEAD with 405 or 501 are retried once with GET.
func (c *Checker) Check(ctx context.Context, rawURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()

	code, err := c.do(ctx, http.MethodHead, rawURL)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = c.do(ctx, http.MethodGet, rawURL)
	}

	var result Result
	if err != nil {
		result = classifyError(err)
	} else {
		result = classifyStatus(code)
	}

	c.metrics.ObserveFallback(outcome(result))
	c.log.Debug("Fallback check complete",
		logger.String("url", rawURL),
		logger.String("status", string(result.Status)),
		logger.String("reason", result.Reason),
		logger.Int("status_code", result.StatusCode),
		logger.Duration("duration", time.Since(start)),
	)

	return result
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if method == http.MethodGet {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	}

	return resp.StatusCode, nil
}

func classifyStatus(code int) Result {
	result := Result{StatusCode: code}

	switch {
	case code >= statusSuccessLow && code < statusRedirectLow:
		result.Status = domain.StatusValidated
		result.Reason = fmt.Sprintf("http_%d", code)
	case code == statusUnauthorized || code == statusForbidden:
		result.Status = domain.StatusBotBlocked
		result.Reason = fmt.Sprintf("%d_forbidden", code)
	case code == statusNotFound:
		result.Status = domain.StatusBroken
		result.Reason = reasonNotFound
	case code == statusGone:
		result.Status = domain.StatusBroken
		result.Reason = reasonGone
	default:
		result.Status = domain.StatusUncertain
		result.Reason = fmt.Sprintf("%s:%d", reasonHTTPError, code)
	}

	return result
}

func classifyError(err error) Result {
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return Result{Status: domain.StatusFlagged, Reason: domain.ReasonTooManyRedirects}
	case isTimeout(err):
		return Result{Status: domain.StatusUncertain, Reason: domain.ReasonTimeout, Transient: true}
	default:
		return Result{Status: domain.StatusUncertain, Reason: domain.ReasonConnectionError, Transient: true}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(r Result) string {
	if r.Transient || r.Status == domain.StatusFlagged {
		return r.Reason
	}
	return string(r.Status)
}
