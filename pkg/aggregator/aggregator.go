// Package aggregator runs the resolve-then-paginate pipeline for a list of
// player names and collects the successful histories.
package aggregator

import (
	"context"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	playersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotd_players_total",
			Help: "Total number of players processed, by result",
		},
		[]string{"result"}, // success, failure, skipped
	)

	playerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotd_player_failures_total",
			Help: "Total number of failed players, by error kind",
		},
		[]string{"kind"},
	)
)

// Resolver maps a player name to one player. *player.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, name string) (cotd.ResolvedPlayer, error)
}

// Paginator collects the history of a player. *pagination.Paginator implements it.
type Paginator interface {
	FetchAll(ctx context.Context, playerID string) (cotd.TimeSeries, error)
}

// Config holds aggregator settings.
type Config struct {
	// Logger overrides the default component logger.
	Logger *zerolog.Logger

	// OnError is called for every player that is dropped from the results.
	OnError func(name string, err error)
}

// Aggregator processes players one at a time.
type Aggregator struct {
	resolver  Resolver
	paginator Paginator
	onError   func(name string, err error)
	logger    zerolog.Logger
}

// New creates an aggregator.
func New(resolver Resolver, paginator Paginator, cfg Config) *Aggregator {
	logger := logging.NewLogger("aggregator")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Aggregator{
		resolver:  resolver,
		paginator: paginator,
		onError:   cfg.OnError,
		logger:    logger,
	}
}

// Run fetches the history of every name in order and returns those that
// succeeded, keyed by the name as given. Failures never stop the run.
// Once ctx is done the remaining names are skipped.
func (a *Aggregator) Run(ctx context.Context, names []string) cotd.ResultMap {
	start := time.Now()
	results := make(cotd.ResultMap, len(names))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			skipped := len(names) - i
			playersTotal.WithLabelValues("skipped").Add(float64(skipped))
			a.logger.Warn().Err(err).Int("skipped", skipped).Msg("Run cancelled, skipping remaining players")
			break
		}

		series, err := a.fetch(ctx, name)
		if err != nil {
			a.fail(name, err)
			continue
		}

		results[name] = series
		playersTotal.WithLabelValues("success").Inc()
	}

	a.logger.Info().
		Int("requested", len(names)).
		Int("succeeded", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Run complete")

	return results
}

func (a *Aggregator) fetch(ctx context.Context, name string) (cotd.TimeSeries, error) {
	player, err := a.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	series, err := a.paginator.FetchAll(ctx, player.ID)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("player", name).
		Str("player_id", player.ID).
		Int("entries", len(series)).
		Msg("History fetched")

	return series, nil
}

func (a *Aggregator) fail(name string, err error) {
	kind := cotd.KindOf(err)
	playersTotal.WithLabelValues("failure").Inc()
	playerFailuresTotal.WithLabelValues(string(kind)).Inc()

	a.logger.Error().Err(err).Str("player", name).Str("kind", string(kind)).Msg("Player dropped")

	if a.onError != nil {
		a.onError(name, err)
	}
}
