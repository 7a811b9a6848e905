package client

import (
	"errors"
	"net/http"
)

// ErrRelativeURL is returned when a request URL is not absolute.
var ErrRelativeURL = errors.New("request url must be absolute")

// ErrorClass represents a classification of failed requests.
// The client only uses it for logs and metrics; callers interpret status codes.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus returns the error class for an HTTP status, or "" for non-errors.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
