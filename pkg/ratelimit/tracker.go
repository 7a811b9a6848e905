package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cotd_ratelimit_remaining",
		Help: "Requests remaining in the current trackmania.io rate limit window",
	})

	rateLimitSleepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotd_ratelimit_sleeps_total",
		Help: "Total number of throttling sleeps caused by a nearly exhausted quota",
	})

	rateLimitSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cotd_ratelimit_sleep_seconds",
		Help:    "Duration of throttling sleeps",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
	})
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds tracker settings.
type Config struct {
	// Threshold is the remaining quota at or below which requests sleep.
	Threshold int

	// Grace is added to the reset delay.
	Grace time.Duration

	// Sleep is used for throttling (default: Sleep).
	Sleep SleepFunc
}

// DefaultConfig returns the throttling behavior expected by trackmania.io.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Grace:     DefaultGrace,
		Sleep:     Sleep,
	}
}

// Tracker inspects rate limit headers and throttles the caller.
// It keeps the last observed state only; a Tracker is not safe for
// concurrent use because inspect-then-sleep is not atomic.
type Tracker struct {
	config Config
	last   *RateLimitState
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}

	return &Tracker{
		config: cfg,
		logger: logger,
	}
}

// Observe reads the rate limit headers of a response and, when the quota is
// nearly exhausted, blocks for the reset delay plus grace.
// It returns how long it slept.
func (t *Tracker) Observe(ctx context.Context, headers http.Header) (time.Duration, error) {
	state, err := ParseHeaders(headers)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}

	t.last = state
	rateLimitRemaining.Set(float64(state.Remaining))

	if !state.NeedsThrottling(t.config.Threshold) {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("Rate limit state updated")
		return 0, nil
	}

	if !state.ResetKnown {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Str("header", HeaderReset).
			Msg("Reset header missing or invalid, sleeping for grace period only")
	}

	wait := state.SleepDuration(t.config.Grace)
	t.logger.Info().
		Int("remaining", state.Remaining).
		Dur("sleep", wait).
		Msg("Rate limit almost hit, sleeping")

	rateLimitSleepsTotal.Inc()
	rateLimitSleepSeconds.Observe(wait.Seconds())

	if err := t.config.Sleep(ctx, wait); err != nil {
		return 0, fmt.Errorf("rate limit sleep: %w", err)
	}

	return wait, nil
}

// State returns a copy of the last observed state, or nil if none was seen.
func (t *Tracker) State() *RateLimitState {
	if t.last == nil {
		return nil
	}
	state := *t.last
	return &state
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
