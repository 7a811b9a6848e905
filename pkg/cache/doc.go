// Package cache provides a Redis-backed cache for player name resolutions.
//
// Resolving a name costs one search request against the rate-limited
// trackmania.io API. The cache stores the name → identifier mapping of
// successful resolutions so later runs can skip that request. It never
// stores COTD history.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultConfig())
//
//	player, found, err := manager.Lookup(ctx, "Wirtual")
//	if err == nil && !found {
//		// resolve through the API, then
//		_ = manager.Store(ctx, "Wirtual", resolved)
//	}
//
// Keys are namespaced by API host so that resolutions from a test server
// never leak into production lookups:
//
//	cotd:player:trackmania.io:Wirtual
//
// Only exact, case-sensitive names hit: the API search is fuzzy, and a
// different spelling may resolve differently.
//
// # Metrics
//
//   - cotd_resolver_cache_hits_total - Cache hits
//   - cotd_resolver_cache_misses_total - Cache misses
//   - cotd_resolver_cache_errors_total{operation} - Cache operation errors
package cache
