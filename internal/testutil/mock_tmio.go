// Package testutil provides testing utilities for the trackmania.io COTD client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PageSize is the number of COTD items the API serves per history page.
const PageSize = 25

// SearchPlayer is a name search result served by MockTMIO.
type SearchPlayer struct {
	ID   string
	Name string
}

// HistoryItem is one COTD result served by MockTMIO.
type HistoryItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Rank      int    `json:"rank"`
	Div       int    `json:"div"`
}

// MockTMIO is a configurable fake of the trackmania.io API for testing.
// It serves name searches and paginated COTD history from in-memory data.
type MockTMIO struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	players  map[string][]SearchPlayer
	history  map[string][]HistoryItem

	remaining string
	reset     string

	requestCount      int
	requests          []string
	lastRequestHeader http.Header
}

// NewMockTMIO creates a new mock trackmania.io server.
func NewMockTMIO() *MockTMIO {
	mock := &MockTMIO{
		handlers:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		players:   make(map[string][]SearchPlayer),
		history:   make(map[string][]HistoryItem),
		remaining: "40",
		reset:     "60",
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requests = append(mock.requests, r.URL.RequestURI())
		mock.lastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTMIO) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTMIO) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTMIO) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requests = nil
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockTMIO) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetStatus makes path answer with status and an error body.
func (m *MockTMIO) SetStatus(path string, status int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		m.writeRateLimitHeaders(w)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": %q}`, http.StatusText(status))
	})
}

// SetRateLimit sets the X-Ratelimit-* headers sent with every response.
// An empty remaining omits both headers.
func (m *MockTMIO) SetRateLimit(remaining, reset string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining
	m.reset = reset
}

// AddSearch registers the candidates returned when searching for query.
func (m *MockTMIO) AddSearch(query string, players ...SearchPlayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[query] = players
}

// SetHistory registers the full COTD history of a player.
func (m *MockTMIO) SetHistory(playerID string, items []HistoryItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[playerID] = items
}

// RequestCount returns the number of requests made to the server.
func (m *MockTMIO) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// Requests returns the request URIs received, in order.
func (m *MockTMIO) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockTMIO) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// PageRequests returns the history page indices requested for playerID, in order.
func (m *MockTMIO) PageRequests(playerID string) []int {
	prefix := "/api/player/" + playerID + "/cotd/"

	var pages []int
	for _, uri := range m.Requests() {
		path, _, _ := strings.Cut(uri, "?")
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if page, err := strconv.Atoi(strings.TrimPrefix(path, prefix)); err == nil {
			pages = append(pages, page)
		}
	}
	return pages
}

func (m *MockTMIO) writeRateLimitHeaders(w http.ResponseWriter) {
	m.mu.RLock()
	remaining, reset := m.remaining, m.reset
	m.mu.RUnlock()

	if remaining == "" {
		return
	}
	w.Header().Set("X-Ratelimit-Remaining", remaining)
	w.Header().Set("X-Ratelimit-Reset", reset)
}

// defaultHandler serves the search and history endpoints.
func (m *MockTMIO) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.writeRateLimitHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch {
	case r.URL.Path == "/api/players/find":
		m.serveSearch(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/player/"):
		m.serveHistory(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Not found"}`))
	}
}

func (m *MockTMIO) serveSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	players := m.players[r.URL.Query().Get("search")]
	m.mu.RUnlock()

	type player struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	results := make([]map[string]any, 0, len(players))
	for _, p := range players {
		results = append(results, map[string]any{
			"player":    player{ID: p.ID, Name: p.Name},
			"matchtype": "name",
		})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}

func (m *MockTMIO) serveHistory(w http.ResponseWriter, r *http.Request) {
	// /api/player/{id}/cotd/{page}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 5 || parts[3] != "cotd" {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Not found"}`))
		return
	}

	page, err := strconv.Atoi(parts[4])
	if err != nil || page < 0 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Invalid page"}`))
		return
	}

	m.mu.RLock()
	items, exists := m.history[parts[2]]
	m.mu.RUnlock()
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Player not found"}`))
		return
	}

	start := min(page*PageSize, len(items))
	end := min(start+PageSize, len(items))

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"cotds":      items[start:end],
		"totalcotds": len(items),
	})
}

// NewHistory builds n COTD items, newest first, one per day ending at newest.
// Ranks are 1..n.
func NewHistory(n int, newest time.Time) []HistoryItem {
	items := make([]HistoryItem, n)
	for i := range items {
		day := newest.AddDate(0, 0, -i)
		items[i] = HistoryItem{
			ID:        10000 + n - i,
			Name:      "Cup of the Day " + day.Format("2006-01-02") + " #1",
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, time.UTC).Format(time.RFC3339),
			Rank:      i + 1,
			Div:       i/64 + 1,
		}
	}
	return items
}
