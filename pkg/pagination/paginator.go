package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// PageSize is the number of items in a full history page.
const PageSize = 25

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotd_pages_fetched_total",
		Help: "Total number of COTD history pages fetched",
	})

	entriesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotd_entries_fetched_total",
		Help: "Total number of COTD history entries fetched",
	})
)

// Paginator collects the full history of a player page by page.
type Paginator struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewPaginator creates a paginator reading pages through fetcher.
func NewPaginator(fetcher PageFetcher) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		logger:  logging.NewLogger("paginator"),
	}
}

// FetchAll returns every entry of the player's history in retrieval order.
// Any page error aborts the walk and nothing is returned.
func (p *Paginator) FetchAll(ctx context.Context, playerID string) (cotd.TimeSeries, error) {
	start := time.Now()
	series := cotd.TimeSeries{}

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := p.fetcher.FetchPage(ctx, playerID, page)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", playerID, err)
		}

		pagesFetchedTotal.Inc()
		entriesFetchedTotal.Add(float64(len(entries)))
		series = append(series, entries...)

		p.logger.Debug().
			Str("player_id", playerID).
			Int("page", page).
			Int("items", len(entries)).
			Msg("History page fetched")

		if len(entries) < PageSize {
			p.logger.Debug().
				Str("player_id", playerID).
				Int("pages", page+1).
				Int("entries", len(series)).
				Dur("duration", time.Since(start)).
				Msg("History complete")
			return series, nil
		}
	}
}
