package cmd

import (
	"fmt"
	"os"

	"content-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configDir     string
	logLevelFlag  string
	logFormatFlag string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "content-sync",
	Short: "Content ledger to Micropub sync",
	Long: `content-sync mirrors a spreadsheet content ledger onto a Micropub site.
Missing rows are published, changed rows are updated and removed rows have
their posts deleted, one rate-limited run at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with ISO8601 timestamps for CLI failures
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding the .env file")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Override log format (pretty, console, json)")
}
