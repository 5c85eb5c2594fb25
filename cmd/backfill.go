package cmd

import (
	"context"

	"github.com/relloyd/batchetl/actions"
	"github.com/relloyd/batchetl/constants"
	"github.com/spf13/cobra"
)

var backfillFlags = pipelineFlags{}
var backfillStart string
var backfillEnd string
var backfillStep string

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run the pipeline for a range of logical dates",
	Long: `Run the pipeline for every logical date from --start-date to --end-date inclusive,
oldest first. The backfill stops at the first date that fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillEnd == "" {
			backfillEnd = actions.Today()
		}
		cfg, err := backfillFlags.runConfig(backfillStart, backfillStep)
		if err != nil {
			return err
		}
		return actions.RunBackfill(context.Background(), cfg, backfillStart, backfillEnd)
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	switches.addFlag(backfillCmd, &backfillStart, "start-date", "", "")
	switches.addFlag(backfillCmd, &backfillEnd, "end-date", "", "")
	switches.addFlag(backfillCmd, &backfillStep, "step", constants.StepAll, "")
	backfillFlags.addFlags(backfillCmd)
}
