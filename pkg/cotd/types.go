// Package cotd defines the data model shared by the trackmania.io COTD client:
// player candidates, resolved players, history entries and the error taxonomy
// reported by the resolver and the paginator.
package cotd

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format kept from COTD timestamps.
const DateLayout = "2006-01-02"

// Candidate is one match returned by the player name search.
type Candidate struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// ResolvedPlayer is the single candidate that a name search resolved to.
// It is a value type and is never modified once returned by a resolver.
type ResolvedPlayer struct {
	Candidate
}

// Entry is a single COTD placement.
type Entry struct {
	// Date is the calendar date of the event at 00:00 UTC.
	Date time.Time `json:"date"`

	// Rank is the placement as reported by the API.
	Rank int `json:"rank"`
}

// ParseEntry builds an Entry from an API timestamp and rank.
// Only the first 10 characters of the timestamp (the ISO date) are kept.
func ParseEntry(timestamp string, rank int) (Entry, error) {
	if len(timestamp) < len(DateLayout) {
		return Entry{}, fmt.Errorf("timestamp %q too short", timestamp)
	}

	date, err := time.Parse(DateLayout, timestamp[:len(DateLayout)])
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp %q: %w", timestamp, err)
	}

	return Entry{Date: date, Rank: rank}, nil
}

// TimeSeries is a player's COTD history in page retrieval order.
type TimeSeries []Entry

// ResultMap maps a player name, as typed by the caller, to its history.
// Players that failed resolution or retrieval are absent.
type ResultMap map[string]TimeSeries
