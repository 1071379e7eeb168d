package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/export"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

func newExportCmd() *cobra.Command {
	var (
		flags     filterFlags
		formatArg string
		output    string
		maxPages  int
	)

	cmd := &cobra.Command{
		Use:   "export [movies|tv-shows]",
		Short: "Scrape the catalog and write the results to a file",
		Long: `Walks the listing pages for the given content type and writes the
normalized items to a local file as JSON, CSV or an Excel workbook.`,
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
			format, err := export.ParseFormat(formatArg)
			if err != nil {
				return err
			}
			if output == "" {
				return fmt.Errorf("--output is required")
			}

			opts := scraper.Options{MaxPages: maxPages}
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
				return fmt.Errorf("scrape %s: %w", args[0], err)
			}

			if err := export.Write(items, format, output); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			logDiagnostics(a.logger, diag, time.Since(start))
			a.logger.Info("export written",
				zap.String("path", output),
				zap.String("format", string(format)),
				zap.Int("items", len(items)),
			)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&formatArg, "format", "json", "output format (json, csv or excel)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to fetch (0 uses the configured default)")
	return cmd
}
