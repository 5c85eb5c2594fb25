package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/relloyd/batchetl/actions"
	"github.com/relloyd/batchetl/constants"
	"github.com/spf13/cobra"
)

var scheduleFlags = pipelineFlags{}
var scheduleCron string
var scheduleRetries int
var scheduleRetryDelay string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Run extract and load on a cron schedule until interrupted where:

- each tick processes the logical date of the day before the tick
- a failed run is retried --retries times, waiting --retry-delay between attempts
- a run that fails every attempt is logged with field notify=true
- a tick is skipped while the previous run is still in progress`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, err := time.ParseDuration(scheduleRetryDelay)
		if err != nil {
			return fmt.Errorf("invalid retry delay %q: %v", scheduleRetryDelay, err)
		}
		run, err := scheduleFlags.runConfig("", constants.StepAll)
		if err != nil {
			return err
		}
		return actions.RunScheduler(actions.SchedulerConfig{
			LogLevel:         scheduleFlags.logLevel,
			Cron:             scheduleCron,
			Retries:          scheduleRetries,
			RetryDelay:       delay,
			StackDumpOnPanic: stackDumpOnPanic,
			Run:              run,
		})
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	switches.addFlag(scheduleCmd, &scheduleCron, "cron", constants.ScheduleCronDefault, "")
	switches.addFlag(scheduleCmd, &scheduleRetries, "retries", strconv.Itoa(constants.ScheduleRetriesDefault), "")
	switches.addFlag(scheduleCmd, &scheduleRetryDelay, "retry-delay", constants.ScheduleRetryDelayDefault, "")
	scheduleFlags.addFlags(scheduleCmd)
}
