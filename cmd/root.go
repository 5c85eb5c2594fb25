package cmd

import (
	"os"

	"github.com/relloyd/batchetl/config"
	"github.com/relloyd/batchetl/helper"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-06-01T00:00+0000"
	stackDumpOnPanic bool
	configFilePath   string
	envFilePath      string
	configFile       *config.File
)

var rootCmd = &cobra.Command{
	Use:   "batchetl",
	Short: "Snapshot a database and a CSV file per day, reload them and export a combined view",
	Long: `batchetl is a daily batch ETL job.

For one logical date it:
  1. snapshots every table of the source database and one CSV file to Parquet files
     under data/<source>/<table>/<date>/ and data/csv/<date>/;
  2. reloads the snapshots into <table>_final tables of the target database;
  3. replaces a view joining two of those tables and exports it to results/<view>_<date>.csv and .json.

Every flag may also be supplied as an environment variable BATCHETL_<FLAG> (e.g. BATCHETL_CSV_PATH)
or as a key in the config file. Command-line flags win over the environment, which wins over the
config file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", config.DefaultPath(), "Config `<file>` in YAML or JSON")
	rootCmd.PersistentFlags().StringVar(&envFilePath, "env-file", "", "Optional dotenv `<file>` of BATCHETL_* variables; variables already set win")
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// loadSettings loads the env file and config file, then fills in flags that were not given on the
// command line.
func loadSettings(cmd *cobra.Command, args []string) error {
	if envFilePath == "" {
		envFilePath = os.Getenv(flagNameToEnvVar("env-file"))
	}
	if err := helper.LoadEnvFile(envFilePath); err != nil {
		return err
	}
	if !cmd.Flags().Changed("config") {
		if v := os.Getenv(flagNameToEnvVar("config")); v != "" {
			configFilePath = v
		}
	}
	var err error
	if configFile, err = config.NewFile(configFilePath); err != nil {
		return err
	}
	return applyFlagSources(cmd.Flags(), configFile.Get)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		rootCmd.SetArgs(twelveFactorArgs())
	}
	if err := rootCmd.Execute(); err != nil {
		// Execute() prints the error.
		os.Exit(1)
	}
}
