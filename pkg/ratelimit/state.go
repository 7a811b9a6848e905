// Package ratelimit implements trackmania.io rate limit tracking.
// It reads the X-Ratelimit-Remaining and X-Ratelimit-Reset response headers
// and blocks the caller when the remaining quota is nearly exhausted.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Rate limit response headers.
const (
	HeaderRemaining = "X-Ratelimit-Remaining"
	HeaderReset     = "X-Ratelimit-Reset"
)

const (
	// DefaultThreshold is the remaining quota at or below which the tracker sleeps.
	DefaultThreshold = 2

	// DefaultGrace is added to the advertised reset delay before resuming.
	DefaultGrace = 2 * time.Second
)

// RateLimitState is the rate limit information carried by a single response.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAfter is the delay until the window resets.
	ResetAfter time.Duration

	// ResetKnown is false when X-Ratelimit-Reset was missing or unparseable.
	ResetKnown bool

	// ObservedAt is when the headers were read.
	ObservedAt time.Time
}

// ParseHeaders extracts the rate limit state from response headers.
// It returns nil, nil when X-Ratelimit-Remaining is absent.
func ParseHeaders(headers http.Header) (*RateLimitState, error) {
	remainStr := strings.TrimSpace(headers.Get(HeaderRemaining))
	if remainStr == "" {
		return nil, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	state := &RateLimitState{
		Remaining:  remain,
		ObservedAt: time.Now(),
	}

	if resetStr := strings.TrimSpace(headers.Get(HeaderReset)); resetStr != "" {
		if resetSeconds, err := strconv.Atoi(resetStr); err == nil && resetSeconds >= 0 {
			state.ResetAfter = time.Duration(resetSeconds) * time.Second
			state.ResetKnown = true
		}
	}

	return state, nil
}

// NeedsThrottling reports whether the remaining quota is at or below threshold.
func (s *RateLimitState) NeedsThrottling(threshold int) bool {
	return s.Remaining <= threshold
}

// SleepDuration is the advertised reset delay plus grace.
func (s *RateLimitState) SleepDuration(grace time.Duration) time.Duration {
	return s.ResetAfter + grace
}

// ResetAt returns the wall-clock time the window resets.
func (s *RateLimitState) ResetAt() time.Time {
	return s.ObservedAt.Add(s.ResetAfter)
}
