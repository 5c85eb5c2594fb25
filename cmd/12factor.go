package cmd

import (
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/relloyd/batchetl/actions"
	c "github.com/relloyd/batchetl/constants"
	"github.com/spf13/cobra"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set before Execute() decides which arguments to use.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(c.EnvVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == c.TwelveFactorModeLambda
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarCommand = c.EnvVarPrefix + "_" + "COMMAND"
	lambdaCommand = "lambda"
)

var (
	twelveFactorMode bool // true if os env var constants.EnvVarTwelveFactorMode is set
	lambdaMode       bool // true if constants.EnvVarTwelveFactorMode is set to "lambda"
)

// twelveFactorArgs returns the command line to execute when the binary is started without arguments.
// Flags are not needed since every flag is read from its BATCHETL_<FLAG> variable by loadSettings.
func twelveFactorArgs() []string {
	def := runCmd.Name()
	if lambdaMode {
		def = lambdaCommand
	}
	cmd := strings.TrimSpace(os.Getenv(envVarCommand))
	if cmd == "" {
		cmd = def
	}
	return strings.Fields(cmd)
}

var lambdaFlags = pipelineFlags{}

var lambdaCmd = &cobra.Command{
	Use:    lambdaCommand,
	Short:  "Serve AWS Lambda invocations",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := lambdaFlags.runConfig("", "")
		if err != nil {
			return err
		}
		lambda.Start(actions.LambdaHandler(*cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
	lambdaFlags.addFlags(lambdaCmd)
}
