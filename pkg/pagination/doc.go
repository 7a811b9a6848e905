// Package pagination walks a player's paginated COTD history on trackmania.io.
//
// The history endpoint serves a fixed number of items per page and no total
// count that can be trusted, so pages are requested one after another starting
// at page 0 until a page comes back short:
//
//	fetcher := pagination.NewHTTPPageFetcher(client, "https://trackmania.io")
//	paginator := pagination.NewPaginator(fetcher)
//	series, err := paginator.FetchAll(ctx, playerID)
//
// The paginator:
//   - Requests pages sequentially through the rate-limit-aware client
//   - Stops at the first page holding fewer than PageSize items (an empty page included)
//   - Keeps entries in retrieval order, without re-sorting across pages
//   - Aborts on the first failing page and returns no partial series
package pagination
