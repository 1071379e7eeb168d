package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

func newSearchCmd() *cobra.Command {
	var (
		flags    filterFlags
		kindArg  string
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the catalog by title",
		Long: `Runs the site search for the given term, applies the configured
filters and prints the matching items as JSON in relevance order.`,
		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			kind := catalog.KindMovie
			if kindArg != "" {
				if kind, err = scrapeKind(kindArg); err != nil {
					return err
				}
			}

			term := strings.Join(args, " ")
			start := time.Now()
			items, diag, err := a.pipeline.Search(cmd.Context(), term, kind, flags.filters(), scraper.Options{MaxPages: maxPages})
			if err != nil {
				return fmt.Errorf("search %q: %w", term, err)
			}

			logDiagnostics(a.logger, diag, time.Since(start))
			return printItems(items)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&kindArg, "type", "", "content type to search (movies or tv-shows)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum result pages to fetch (0 uses the configured default)")
	return cmd
}
