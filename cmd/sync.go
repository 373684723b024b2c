package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"content-sync/core/config"
	"content-sync/core/content"
	"content-sync/core/logger"
	"content-sync/core/micropub"
	"content-sync/core/pacing"
	"content-sync/core/reconcile"
	"content-sync/core/retry"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd runs one reconciliation.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the ledger against the Micropub site",
	Long: `Runs one reconciliation: publishes at most one new row, republishes
posts with generated slugs, updates changed posts and deletes posts whose
rows were removed.

Examples:
  # Log the planned mutations without executing them
  content-sync sync --dry-run

  # Sync with JSON logs
  content-sync sync --log-format json`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "Log mutations instead of executing them")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stale, err := cfg.Sync.StalePolicy()
	if err != nil {
		return err
	}

	book, err := openLedger(ctx, cfg, l)
	if err != nil {
		return err
	}

	remote, err := micropub.NewClient(cfg.Micropub)
	if err != nil {
		return fmt.Errorf("failed to create micropub client: %w", err)
	}

	runID := uuid.NewString()
	orchestrator := reconcile.NewOrchestrator(reconcile.Dependencies{
		Ledger:    book,
		Remote:    remote,
		Formatter: content.NewFormatter(cfg.Sync.Content()),
		Executor:  retry.NewExecutor(cfg.Sync.Policy(), l),
		Pacer:     pacing.NewInterval(cfg.Sync.WriteInterval),
	}, reconcile.Options{
		DryRun:      cfg.Sync.DryRun,
		StalePolicy: stale,
		PageSize:    cfg.Micropub.PageSize,
		RunID:       runID,
	}, l)

	report, runErr := orchestrator.Run(ctx)
	if report != nil {
		// Record even interrupted runs
		recordRun(context.WithoutCancel(ctx), cfg, logger.WithRun(l, runID, cfg.Sync.DryRun), report)
		renderReport(cmd.OutOrStdout(), report)
	}

	if runErr != nil {
		return runErr
	}
	if report.HasFailures() {
		return fmt.Errorf("sync finished with %d failed items", report.Failed())
	}
	return nil
}

// recordRun archives the report and saves it to the journal. Both are optional.
func recordRun(ctx context.Context, cfg *config.Config, l *zap.Logger, report *reconcile.Report) {
	var key string
	if archive := openArchive(cfg, l); archive != nil {
		k := archive.Key(report.RunID, report.StartedAt)
		if err := archive.PutJSON(ctx, k, report); err != nil {
			l.Warn("Report archive failed", zap.Error(err))
		} else {
			key = k
			l.Info("Report archived", zap.String("key", key))
		}
	}

	store := openJournal(ctx, cfg, l)
	if store == nil {
		return
	}
	if _, err := store.Save(ctx, report, key); err != nil {
		l.Warn("Journal save failed", zap.Error(err))
		return
	}
	l.Debug("Run saved to journal")
}
