// Package player resolves free-text player names to trackmania.io account
// identifiers through the name search endpoint.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/rs/zerolog"
)

// SearchPath is the name search endpoint.
const SearchPath = "/api/players/find"

// Getter issues GET requests. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Cache stores successful resolutions. *cache.Manager implements it.
type Cache interface {
	Lookup(ctx context.Context, name string) (cotd.ResolvedPlayer, bool, error)
	Store(ctx context.Context, name string, player cotd.ResolvedPlayer) error
}

// Config holds resolver settings.
type Config struct {
	// BaseURL is the API root, e.g. https://trackmania.io.
	BaseURL string

	// Cache is optional.
	Cache Cache
}

// Resolver maps a player name to exactly one identifier.
type Resolver struct {
	getter  Getter
	baseURL string
	cache   Cache
	logger  zerolog.Logger
}

// searchResult is one element of the search response.
type searchResult struct {
	Player *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
}

// NewResolver creates a resolver that issues requests through getter.
func NewResolver(getter Getter, cfg Config) *Resolver {
	return &Resolver{
		getter:  getter,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		cache:   cfg.Cache,
		logger:  logging.NewLogger("player-resolver"),
	}
}

// SearchURL returns the search request URL for name.
func (r *Resolver) SearchURL(name string) string {
	return r.baseURL + SearchPath + "?search=" + url.QueryEscape(name)
}

// Resolve returns the single player matching name.
//
// It fails with a *cotd.Error of kind KindUnexpectedStatus on a non-200
// response, KindPlayerNotFound when the search is empty, and
// KindAmbiguousPlayer when more than one candidate matches, even if one of
// them is an exact match.
func (r *Resolver) Resolve(ctx context.Context, name string) (cotd.ResolvedPlayer, error) {
	if r.cache != nil {
		player, found, err := r.cache.Lookup(ctx, name)
		if err != nil {
			r.logger.Warn().Err(err).Str("player", name).Msg("Resolver cache lookup failed")
		} else if found {
			r.logger.Debug().Str("player", name).Str("player_id", player.ID).Msg("Resolved from cache")
			return player, nil
		}
	}

	candidates, err := r.Search(ctx, name)
	if err != nil {
		return cotd.ResolvedPlayer{}, err
	}

	if len(candidates) == 0 {
		return cotd.ResolvedPlayer{}, cotd.NewPlayerNotFound(name)
	}
	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.DisplayName
		}
		return cotd.ResolvedPlayer{}, cotd.NewAmbiguousPlayer(name, names)
	}

	player := cotd.ResolvedPlayer{Candidate: candidates[0]}
	r.logger.Info().Str("player", name).Str("player_id", player.ID).Msg("Player resolved")

	if r.cache != nil {
		if err := r.cache.Store(ctx, name, player); err != nil {
			r.logger.Warn().Err(err).Str("player", name).Msg("Resolver cache store failed")
		}
	}

	return player, nil
}

// Search returns every candidate the API matches for name, in response order.
func (r *Resolver) Search(ctx context.Context, name string) ([]cotd.Candidate, error) {
	searchURL := r.SearchURL(name)

	resp, err := r.getter.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search player %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cotd.NewUnexpectedStatus(searchURL, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, cotd.NewMalformedResponse(searchURL, err)
	}

	candidates := make([]cotd.Candidate, 0, len(results))
	for i, result := range results {
		if result.Player == nil || result.Player.ID == "" {
			return nil, cotd.NewMalformedResponse(searchURL, fmt.Errorf("result %d has no player id", i))
		}
		candidates = append(candidates, cotd.Candidate{ID: result.Player.ID, DisplayName: result.Player.Name})
	}

	return candidates, nil
}
