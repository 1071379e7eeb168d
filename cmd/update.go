package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

func newUpdateCmd() *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the Postgres catalog from the site",
		Long: `Scrapes both movies and TV shows and upserts the results into the
configured Postgres table. Requires db.dsn to be set.`,
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if a.store == nil {
				return fmt.Errorf("db.dsn must be configured for update")
			}

			opts := scraper.Options{MaxPages: maxPages}
			start := time.Now()
			total := 0

			for _, kind := range []catalog.Kind{catalog.KindMovie, catalog.KindTVShow} {
				var (
					items []catalog.ContentItem
					diag  catalog.Diagnostics
				)
				if kind == catalog.KindMovie {
					items, diag, err = a.pipeline.ScrapeMovies(cmd.Context(), catalog.Filters{}, opts)
				} else {
					items, diag, err = a.pipeline.ScrapeTVShows(cmd.Context(), catalog.Filters{}, opts)
				}
				if err != nil {
					// Persist what was collected before surfacing the failure.
					if len(items) > 0 {
						if saveErr := a.store.Save(cmd.Context(), items); saveErr != nil {
							a.logger.Warn("failed to save partial results", zap.Error(saveErr))
						}
					}
					return fmt.Errorf("update %s: %w", kind, err)
				}
				if err := a.store.Save(cmd.Context(), items); err != nil {
					return fmt.Errorf("save %s: %w", kind, err)
				}
				total += len(items)
				logDiagnostics(a.logger, diag, time.Since(start))
			}

			a.logger.Info("catalog updated",
				zap.Int("items", total),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to fetch per content type (0 uses the configured default)")
	return cmd
}
