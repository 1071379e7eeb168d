// Package cmd defines and implements the CLI commands for the cuevana-scraper
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/config"
	"github.com/charliechaser/cuevana-scraper/internal/fetch"
	"github.com/charliechaser/cuevana-scraper/internal/logging"
	"github.com/charliechaser/cuevana-scraper/internal/metrics"
	"github.com/charliechaser/cuevana-scraper/internal/parse"
	"github.com/charliechaser/cuevana-scraper/internal/ratelimit"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
	"github.com/charliechaser/cuevana-scraper/internal/store"
)

var cfgFile string

// appKeyType is the key for storing the app in the command context.
type appKeyType string

const appKey appKeyType = "app"

// app bundles the services the subcommands share.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	pipeline *scraper.Pipeline
	store    *store.Store
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// newApp is the application factory. It is a variable so tests can replace it
// with a mock factory.
var newApp = func(ctx context.Context) (*app, error) {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	fetcher, err := fetch.NewCollyFetcher(fetch.CollyConfig{
		UserAgent:     cfg.Scraper.UserAgent,
		Timeout:       cfg.HTTPTimeout(),
		RespectRobots: cfg.Scraper.RespectRobots,
		Proxies:       cfg.Scraper.Proxies,
	})
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimitDelay())
	client := fetch.NewClient(fetcher, limiter, fetch.Config{
		RetryAttempts: cfg.HTTP.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
		Cooldown429:   cfg.Cooldown429(),
		CacheTTL:      cfg.CacheTTL(),
	}, logger)

	pipeline := scraper.New(client, parse.New(cfg.Scraper.BaseURL, logger), scraper.Config{
		BaseURL:      cfg.Scraper.BaseURL,
		ItemsPerPage: cfg.Scraper.ItemsPerPage,
		MaxPages:     cfg.Scraper.MaxPages,
	}, logger)

	a := &app{cfg: cfg, logger: logger, pipeline: pipeline}

	if cfg.DB.DSN != "" {
		s, err := store.New(ctx, store.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.store = s
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cuevana-scraper",
		Short: "A metadata scraper for the Cuevana streaming catalog.",
		Long: `cuevana-scraper extracts movie and TV show metadata from the Cuevana
catalog. It walks listing pages with polite pacing and retries, normalizes
the results and serves them over a CLI, export files, Postgres or HTTP.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				a.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// filterFlags holds the shared filter flag values.
type filterFlags struct {
	genre     string
	yearFrom  int
	yearTo    int
	minRating float64
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.genre, "genre", "", "only include items with this genre")
	cmd.Flags().IntVar(&f.yearFrom, "year-from", 0, "only include items released in or after this year")
	cmd.Flags().IntVar(&f.yearTo, "year-to", 0, "only include items released in or before this year")
	cmd.Flags().Float64Var(&f.minRating, "min-rating", 0, "only include items rated at or above this value")
}

func (f *filterFlags) filters() catalog.Filters {
	var filters catalog.Filters
	filters.Genre = f.genre
	if f.yearFrom > 0 {
		v := f.yearFrom
		filters.YearFrom = &v
	}
	if f.yearTo > 0 {
		v := f.yearTo
		filters.YearTo = &v
	}
	if f.minRating > 0 {
		v := f.minRating
		filters.MinRating = &v
	}
	return filters
}

// scrapeKind maps the CLI content-type argument onto a catalog kind.
func scrapeKind(arg string) (catalog.Kind, error) {
	switch arg {
	case "movies":
		return catalog.KindMovie, nil
	case "tv-shows":
		return catalog.KindTVShow, nil
	default:
		return "", fmt.Errorf("unknown content type %q (want movies or tv-shows)", arg)
	}
}

func logDiagnostics(logger *zap.Logger, diag catalog.Diagnostics, elapsed time.Duration) {
	logger.Info("scrape finished",
		zap.Int("pages_fetched", diag.PagesFetched),
		zap.Int("items_parsed", diag.ItemsParsed),
		zap.Int("parse_failures", diag.ParseFailures),
		zap.Int("filtered_out", diag.FilteredOut),
		zap.Int("duplicates", diag.Duplicates),
		zap.String("stop_reason", string(diag.StopReason)),
		zap.Duration("elapsed", elapsed),
	)
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
