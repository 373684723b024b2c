package cmd

import (
	"fmt"

	"content-sync/core/journal"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd lists recent journal entries.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		defer l.Sync()

		store := openJournal(cmd.Context(), cfg, l)
		if store == nil {
			return fmt.Errorf("journal database unavailable")
		}

		runs, err := store.Recent(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		renderRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", journal.DefaultLimit, "Number of runs to show")
	RootCmd.AddCommand(runsCmd)
}
