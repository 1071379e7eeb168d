package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

func newScrapeCmd() *cobra.Command {
	var (
		flags    filterFlags
		page     int
		limit    int
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "scrape [movies|tv-shows]",
		Short: "Scrape the catalog listing for one content type",
		Long: `Walks the Cuevana listing pages for the given content type, applies
the configured filters and prints the normalized items as JSON.`,
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			kind, err := scrapeKind(args[0])
			if err != nil {
				return err
			}

			opts := scraper.Options{Page: page, ItemsPerPage: limit, MaxPages: maxPages}
			start := time.Now()

			var (
				items []catalog.ContentItem
				diag  catalog.Diagnostics
			)
			if kind == catalog.KindMovie {
				items, diag, err = a.pipeline.ScrapeMovies(cmd.Context(), flags.filters(), opts)
			} else {
				items, diag, err = a.pipeline.ScrapeTVShows(cmd.Context(), flags.filters(), opts)
			}
			if err != nil {
				// Partial results are still worth printing before the error
				// terminates the command.
				if len(items) > 0 {
					printItems(items)
				}
				return fmt.Errorf("scrape %s: %w", args[0], err)
			}

			logDiagnostics(a.logger, diag, time.Since(start))
			return printItems(items)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "listing page to start from")
	cmd.Flags().IntVar(&limit, "limit", 0, "items per page (0 uses the configured default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to fetch (0 uses the configured default)")
	return cmd
}

func printItems(items []catalog.ContentItem) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	return nil
}
