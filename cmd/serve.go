package cmd

import (
	"net"
	"strconv"

	"github.com/relloyd/batchetl/actions"
	"github.com/relloyd/batchetl/constants"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that runs the pipeline on request",
	Long: `Start a web service that runs the pipeline on request where:

- POST /runs/<date>?step=<extract|load|all> runs the pipeline and responds when it completes
- GET /runs/last describes the most recent run
- GET /health responds with status ok
- POST /stop shuts down the server

Only one run may be in progress; further requests get 409 Conflict.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := serveFlags.runConfig("", constants.StepAll)
		if err != nil {
			return err
		}
		serveConfig.Run = run
		serveConfig.LogLevel = serveFlags.logLevel
		serveConfig.StackDumpOnPanic = stackDumpOnPanic
		return actions.RunWebServer(&serveConfig)
	},
}

var serveFlags = pipelineFlags{}

var serveConfig = actions.WebServerConfig{
	Addr: net.IP{0, 0, 0, 0},
	Port: constants.WebServerPortDefault,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", strconv.Itoa(constants.WebServerPortDefault), "")
	serveFlags.addFlags(serveCmd)
}
