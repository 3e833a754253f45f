package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape pass over the chart",
		Long: `Fetches the chart page, extracts every linked title page with a bounded
worker pool, and appends the complete records to the configured sink.
Individual title failures are logged and skipped; only a chart page that
cannot be fetched or recognized makes the command fail.`,
		Args: cobra.NoArgs,
		RunE: runScrapeCommand,
	}

	flags := cmd.Flags()
	flags.String("catalog-url", "", "chart page to start from")
	flags.String("base-url", "", "prefix for title links found on the chart")
	flags.Int("max-concurrency", 0, "maximum concurrent title fetches")
	flags.Duration("timeout", 0, "per-request timeout (0 disables)")
	flags.String("sink", "", "record sink: csv or postgres")
	flags.StringP("output", "o", "", "csv output path")
	flags.String("metrics-addr", "", "serve /metrics and /healthz on this address during the run")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := appInstance.Run(ctx); err != nil {
		// PersistentPostRun is skipped when RunE fails.
		appInstance.Close()
		return fmt.Errorf("scrape: %w", err)
	}
	appInstance.Logger().Info("Scrape command finished.")
	return nil
}
