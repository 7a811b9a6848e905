package cache

import (
	"time"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
)

// CacheEntry represents a cached player resolution.
type CacheEntry struct {
	// PlayerID is the resolved trackmania.io account identifier.
	PlayerID string `json:"player_id"`

	// DisplayName is the name returned by the search.
	DisplayName string `json:"display_name"`

	// Expires is when the entry stops being served.
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this resolution.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Player converts the entry back into a resolved player.
func (e *CacheEntry) Player() cotd.ResolvedPlayer {
	return cotd.ResolvedPlayer{Candidate: cotd.Candidate{ID: e.PlayerID, DisplayName: e.DisplayName}}
}

// NewEntry builds an entry for player that expires after ttl.
func NewEntry(player cotd.ResolvedPlayer, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		Expires:     now.Add(ttl),
		CachedAt:    now,
	}
}
