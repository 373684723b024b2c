package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"content-sync/core/pacing"
	"content-sync/core/retry"
	"content-sync/feature/pages"

	"github.com/spf13/cobra"
)

// pagesCmd updates category navigation visibility.
var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Show or hide category pages based on recent activity",
	Long: `Computes each category's latest post date from the ledger and hides
navigation pages of categories with no post in the last xmlrpc.inactive_days
days.`,
	RunE: runPages,
}

func init() {
	pagesCmd.Flags().Bool("dry-run", false, "Compute visibility without editing pages")
	RootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer l.Sync()

	if !cfg.XMLRPC.Enabled() {
		return fmt.Errorf("no navigation pages configured, set XMLRPC_PAGES")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	book, err := openLedger(ctx, cfg, l)
	if err != nil {
		return err
	}

	var client pages.Client
	if !cfg.Sync.DryRun {
		c, err := pages.NewClient(cfg.XMLRPC)
		if err != nil {
			return fmt.Errorf("failed to create xmlrpc client: %w", err)
		}
		client = c
	}

	svc, err := pages.NewService(cfg.XMLRPC, book, client,
		retry.NewExecutor(cfg.Sync.Policy(), l), pacing.NewInterval(cfg.Sync.WriteInterval), l)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, cfg.Sync.DryRun)
	if result != nil {
		renderPages(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("page update finished with %d failed pages", result.Failed)
	}
	return nil
}
