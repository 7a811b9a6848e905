package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
)

// PageFetcher fetches a single history page.
type PageFetcher interface {
	FetchPage(ctx context.Context, playerID string, page int) ([]cotd.Entry, error)
}

// Getter issues GET requests. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// historyPage is the body of a history page.
type historyPage struct {
	COTDs *[]historyItem `json:"cotds"`
}

type historyItem struct {
	Timestamp *string `json:"timestamp"`
	Rank      *int    `json:"rank"`
}

// HTTPPageFetcher reads history pages from the trackmania.io API.
type HTTPPageFetcher struct {
	getter  Getter
	baseURL string
}

// NewHTTPPageFetcher creates a fetcher for the API rooted at baseURL.
func NewHTTPPageFetcher(getter Getter, baseURL string) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		getter:  getter,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// PageURL returns the history URL of one page. Reruns are always excluded.
func (f *HTTPPageFetcher) PageURL(playerID string, page int) string {
	return f.baseURL + "/api/player/" + url.PathEscape(playerID) + "/cotd/" + strconv.Itoa(page) + "?includeReruns=false"
}

// FetchPage returns the entries of one page in response order.
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, playerID string, page int) ([]cotd.Entry, error) {
	pageURL := f.PageURL(playerID, page)

	resp, err := f.getter.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cotd.NewUnexpectedStatus(pageURL, resp.StatusCode)
	}

	var body historyPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, cotd.NewMalformedResponse(pageURL, err)
	}
	if body.COTDs == nil {
		return nil, cotd.NewMalformedResponse(pageURL, fmt.Errorf("missing cotds"))
	}

	entries := make([]cotd.Entry, 0, len(*body.COTDs))
	for i, item := range *body.COTDs {
		if item.Timestamp == nil || item.Rank == nil {
			return nil, cotd.NewMalformedResponse(pageURL, fmt.Errorf("item %d lacks timestamp or rank", i))
		}

		entry, err := cotd.ParseEntry(*item.Timestamp, *item.Rank)
		if err != nil {
			return nil, cotd.NewMalformedResponse(pageURL, fmt.Errorf("item %d: %w", i, err))
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
