package cotd

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies retrieval failures.
type Kind string

const (
	// KindUnexpectedStatus is a non-200 response where 200 was required.
	KindUnexpectedStatus Kind = "unexpected_status"

	// KindPlayerNotFound is a name search that returned no candidates.
	KindPlayerNotFound Kind = "player_not_found"

	// KindAmbiguousPlayer is a name search that returned more than one candidate.
	KindAmbiguousPlayer Kind = "ambiguous_player"

	// KindMalformedResponse is a response missing required fields.
	KindMalformedResponse Kind = "malformed_response"

	// KindTransport is anything outside the taxonomy, usually a network error.
	KindTransport Kind = "transport"
)

// Sentinels for errors.Is matching on a Kind.
var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrAmbiguousPlayer   = errors.New("ambiguous player")
	ErrMalformedResponse = errors.New("malformed response")
)

var kindSentinels = map[Kind]error{
	KindUnexpectedStatus:  ErrUnexpectedStatus,
	KindPlayerNotFound:    ErrPlayerNotFound,
	KindAmbiguousPlayer:   ErrAmbiguousPlayer,
	KindMalformedResponse: ErrMalformedResponse,
}

// Error is a classified retrieval failure.
type Error struct {
	Kind Kind

	// Name is the player query, when the failure relates to one.
	Name string

	// URL is the request URL, when the failure relates to one.
	URL string

	// StatusCode is set for KindUnexpectedStatus.
	StatusCode int

	// Candidates holds display names for KindAmbiguousPlayer.
	Candidates []string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindUnexpectedStatus:
		msg = fmt.Sprintf("request to %s returned status %d", e.URL, e.StatusCode)
	case KindPlayerNotFound:
		msg = fmt.Sprintf("no player called %s, and no players with a close name were found", e.Name)
	case KindAmbiguousPlayer:
		msg = fmt.Sprintf("no player called %s, suggestions are: %s", e.Name, strings.Join(e.Candidates, ", "))
	case KindMalformedResponse:
		msg = "malformed response"
		if e.URL != "" {
			msg += " from " + e.URL
		}
	default:
		msg = string(e.Kind)
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the Kind of err, or KindTransport when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// NewUnexpectedStatus reports a non-200 response for url.
func NewUnexpectedStatus(url string, statusCode int) *Error {
	return &Error{Kind: KindUnexpectedStatus, URL: url, StatusCode: statusCode}
}

// NewPlayerNotFound reports an empty name search.
func NewPlayerNotFound(name string) *Error {
	return &Error{Kind: KindPlayerNotFound, Name: name}
}

// NewAmbiguousPlayer reports a name search with several candidates.
func NewAmbiguousPlayer(name string, candidates []string) *Error {
	return &Error{Kind: KindAmbiguousPlayer, Name: name, Candidates: candidates}
}

// NewMalformedResponse reports a response from url that could not be used.
func NewMalformedResponse(url string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, URL: url, Err: err}
}
