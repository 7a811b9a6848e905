// Command cotd-history prints the Cup of the Day history of trackmania
// players, one time series per player name.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/internal/config"
	"github.com/Sternrassler/tmio-cotd-client/internal/output"
	"github.com/Sternrassler/tmio-cotd-client/pkg/aggregator"
	"github.com/Sternrassler/tmio-cotd-client/pkg/cache"
	"github.com/Sternrassler/tmio-cotd-client/pkg/client"
	"github.com/Sternrassler/tmio-cotd-client/pkg/logging"
	"github.com/Sternrassler/tmio-cotd-client/pkg/metrics"
	"github.com/Sternrassler/tmio-cotd-client/pkg/pagination"
	"github.com/Sternrassler/tmio-cotd-client/pkg/player"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// options holds the command line flags.
type options struct {
	players     []string
	configPath  string
	outputPath  string
	format      string
	logLevel    string
	pretty      bool
	redisURL    string
	metricsAddr string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cotd-history -p NAME [NAME...]",
		Short: "Fetch the Cup of the Day history of trackmania players",
		Long: `cotd-history resolves each player name on trackmania.io and prints every
Cup of the Day placement of that player as a date/rank time series.

Players are fetched one after another. A player that cannot be resolved
unambiguously, or whose history cannot be read, is reported on stderr and
left out of the output.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.players = append(opts.players, args...)
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.players, stdout, stderr)
		},
		SilenceUsage: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.players, "players", "p", nil, "Player names (repeatable or comma-separated; trailing arguments are added)")
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "Output file (default: stdout)")
	flags.StringVar(&opts.format, "format", "", "Output format: json, csv, yaml (default: json)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled (env: COTD_LOG_LEVEL)")
	flags.BoolVar(&opts.pretty, "pretty", false, "Human-readable log output")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the player resolution cache (env: COTD_REDIS_URL)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (env: COTD_METRICS_ADDR)")
	_ = cmd.MarkFlagRequired("players")

	return cmd
}

// config merges defaults, environment, the config file and explicit flags.
func (o *options) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = o.outputPath
	}
	if flags.Changed("format") {
		cfg.Output.Format = o.format
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logging.LogLevel(o.logLevel)
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = o.pretty
	}
	if flags.Changed("redis-url") {
		cfg.Redis.URL = o.redisURL
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if len(o.players) == 0 {
		return nil, fmt.Errorf("at least one player name is required")
	}

	return cfg, nil
}

// run fetches every player and writes the results. Per-player failures are
// printed to stderr and do not fail the run.
func run(ctx context.Context, cfg *config.Config, players []string, stdout, stderr io.Writer) error {
	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: stderr,
	})

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	c, err := client.New(cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	resolverCfg := player.Config{BaseURL: cfg.BaseURL}
	if cfg.Redis.URL != "" {
		rdb, err := connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("Resolver cache unavailable, continuing without it")
		} else {
			defer rdb.Close()
			resolverCfg.Cache = cache.NewManager(rdb, cfg.CacheConfig())
		}
	}

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, logger)
		defer shutdown()
	}

	agg := aggregator.New(
		player.NewResolver(c, resolverCfg),
		pagination.NewPaginator(pagination.NewHTTPPageFetcher(c, cfg.BaseURL)),
		aggregator.Config{
			OnError: func(name string, err error) {
				fmt.Fprintf(stderr, "%s: %v\n", name, err)
			},
		},
	)

	results := agg.Run(ctx, players)

	w := stdout
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := output.Write(w, format, players, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	return nil
}

// connectRedis opens and pings the Redis server at rawURL.
func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// serveMetrics exposes /metrics until the returned function is called.
func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
