// Package client provides the rate-limit-aware HTTP client used to talk to
// the trackmania.io API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/Sternrassler/tmio-cotd-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cotd_http_requests_total",
		Help: "Total trackmania.io requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cotd_http_request_duration_seconds",
		Help:    "trackmania.io request duration in seconds by method, excluding throttling sleeps",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cotd_http_errors_total",
		Help: "Total failed trackmania.io requests by class",
	}, []string{"class"})
)

// DefaultUserAgent identifies this client to trackmania.io.
const DefaultUserAgent = "tmio-cotd-client/0.1.0 (github.com/Sternrassler/tmio-cotd-client)"

// Client performs requests against trackmania.io and throttles itself from
// the rate limit headers of every response. A Client owns one persistent
// HTTP session and is not safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	pacer       *rate.Limiter
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header (REQUIRED by trackmania.io)
	UserAgent string

	// Timeout bounds a single HTTP exchange, not throttling sleeps.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64

	// RateLimit controls header-driven throttling.
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %g)", cfg.RequestsPerSecond)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("cotd-client")

	var pacer *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.RateLimit, logging.NewLogger("ratelimit")),
		pacer:       pacer,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request, then inspects the rate limit headers of the
// response and sleeps before returning when the quota is nearly exhausted.
// The response is returned whatever its status; interpreting it is up to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !req.URL.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrRelativeURL, req.URL.String())
	}

	ctx := req.Context()

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Executing request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())

	if err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(req.Method, "network_error").Inc()
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}

	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Request returned error status")
	}

	// The http.Client timeout also covers body reads, so the body is
	// buffered before a throttling sleep can outlast it.
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Redacted(), err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	// Throttling applies to every response, successful or not.
	if _, err := c.rateLimiter.Observe(ctx, resp.Header); err != nil {
		if ctx.Err() != nil {
			resp.Body.Close()
			return nil, err
		}
		c.logger.Warn().Err(err).Msg("Failed to read rate limit headers")
	}

	return resp, nil
}

// Get performs a GET request to an absolute URL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Post performs a POST request to an absolute URL.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.Do(req)
}

// RateLimitState returns the last rate limit state seen, or nil.
func (c *Client) RateLimitState() *ratelimit.RateLimitState {
	return c.rateLimiter.State()
}

// Close releases idle connections held by the session.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
