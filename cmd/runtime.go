package cmd

import (
	"context"
	"fmt"

	"content-sync/core/config"
	"content-sync/core/database"
	"content-sync/core/journal"
	"content-sync/core/ledger"
	"content-sync/core/logger"
	"content-sync/core/sheets"
	"content-sync/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadRuntime loads configuration, applies command line overrides and builds the logger.
func loadRuntime(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cmd, cfg)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(l)
	return cfg, l, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevelFlag
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormatFlag
	}
	if f := flags.Lookup("dry-run"); f != nil && f.Changed {
		dryRun, _ := flags.GetBool("dry-run")
		cfg.Sync.DryRun = dryRun
	}
}

// openLedger connects to the spreadsheet and returns the ledger book.
func openLedger(ctx context.Context, cfg *config.Config, l *zap.Logger) (*ledger.Book, error) {
	client, err := sheets.NewClient(ctx, cfg.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return ledger.NewBook(client, cfg.Sheets.Tabs, l), nil
}

// openJournal returns the run journal, nil when the database is unavailable.
func openJournal(ctx context.Context, cfg *config.Config, l *zap.Logger) *journal.Store {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Warn("Optional journal database connection failed", zap.Error(err))
		return nil
	}

	store := journal.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		l.Warn("Journal migration failed", zap.Error(err))
		return nil
	}
	return store
}

// openArchive returns the report archive, nil when archiving is disabled or unavailable.
func openArchive(cfg *config.Config, l *zap.Logger) *storage.Archive {
	if !cfg.Storage.Enabled {
		return nil
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		l.Warn("Optional report archive unavailable", zap.Error(err))
		return nil
	}
	return storage.NewArchive(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
}
