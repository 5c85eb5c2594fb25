package cmd

import (
	"context"
	"strconv"

	"github.com/relloyd/batchetl/actions"
	"github.com/relloyd/batchetl/aws/s3"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/file"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/pipeline"
	"github.com/spf13/cobra"
)

// pipelineFlags holds the flags shared by every command that runs the pipeline.
type pipelineFlags struct {
	sourceConn   string
	targetConn   string
	csvPath      string
	csvEncoding  string
	csvDelimiter string
	dataDir      string
	resultsDir   string
	logsDir      string
	schema       string
	exclude      string
	batchSize    int
	s3Bucket     string
	s3Prefix     string
	s3Region     string
	viewName     string
	viewLeft     string
	viewRight    string
	viewKey      string
	logLevel     string
}

func (p *pipelineFlags) addFlags(c *cobra.Command) {
	c.Flags().SortFlags = false
	d := file.DefaultLayout()
	v := pipeline.DefaultViewConfig()
	switches.addFlag(c, &p.sourceConn, "postgres-conn", "", "")
	switches.addFlag(c, &p.csvPath, "csv-path", "", "")
	switches.addFlag(c, &p.targetConn, "target-conn", "", "")
	switches.addFlag(c, &p.csvEncoding, "csv-encoding", "", "")
	switches.addFlag(c, &p.csvDelimiter, "csv-delimiter", ",", "")
	switches.addFlag(c, &p.dataDir, "data-dir", d.DataDir, "")
	switches.addFlag(c, &p.resultsDir, "results-dir", d.ResultsDir, "")
	switches.addFlag(c, &p.logsDir, "logs-dir", constants.LogsDirDefault, "")
	switches.addFlag(c, &p.schema, "schema", "", "")
	switches.addFlag(c, &p.exclude, "exclude", "", "")
	switches.addFlag(c, &p.batchSize, "batch-size", strconv.Itoa(constants.InsertBatchSizeDefault), "")
	switches.addFlag(c, &p.s3Bucket, "s3-bucket", "", "")
	switches.addFlag(c, &p.s3Prefix, "s3-prefix", "", "")
	switches.addFlag(c, &p.s3Region, "s3-region", "", "")
	switches.addFlag(c, &p.viewName, "view-name", v.Name, "")
	switches.addFlag(c, &p.viewLeft, "view-left", v.LeftTable, "")
	switches.addFlag(c, &p.viewRight, "view-right", v.RightTable, "")
	switches.addFlag(c, &p.viewKey, "view-key", v.JoinKey, "")
	switches.addFlag(c, &p.logLevel, "log-level", "info", "")
}

// runConfig builds the actions.RunConfig for date and step.
// Connection names are resolved to DSNs using the config file.
func (p *pipelineFlags) runConfig(date string, step string) (*actions.RunConfig, error) {
	src, tgt := p.sourceConn, p.targetConn
	if configFile != nil {
		var err error
		if src, err = configFile.ResolveDsn(src); err != nil {
			return nil, err
		}
		if tgt, err = configFile.ResolveDsn(tgt); err != nil {
			return nil, err
		}
	}
	layout := file.DefaultLayout()
	layout.DataDir = p.dataDir
	layout.ResultsDir = p.resultsDir
	cfg := &actions.RunConfig{
		Pipeline: pipeline.Config{
			SourceDsn:         src,
			TargetDsn:         tgt,
			FlatFilePath:      p.csvPath,
			FlatFileEncoding:  p.csvEncoding,
			FlatFileDelimiter: p.csvDelimiter,
			LogicalDate:       date,
			Layout:            layout,
			Schema:            p.schema,
			Exclude:           helper.CsvToStringSliceTrimSpaces(p.exclude),
			BatchSize:         p.batchSize,
			View: pipeline.ViewConfig{
				Name:       p.viewName,
				LeftTable:  p.viewLeft,
				RightTable: p.viewRight,
				JoinKey:    p.viewKey,
			},
		},
		Step:             step,
		LogLevel:         p.logLevel,
		LogsDir:          p.logsDir,
		StackDumpOnPanic: stackDumpOnPanic,
	}
	if p.s3Bucket != "" { // if the exports should be published...
		b, err := s3.ParseDSN(p.s3Bucket, p.s3Region)
		if err != nil {
			return nil, err
		}
		if p.s3Prefix != "" {
			b.Prefix = p.s3Prefix
		}
		cfg.S3 = &b
	}
	return cfg, nil
}

var runFlags = pipelineFlags{}
var runDate string
var runStep string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for one logical date",
	Long: `Run the pipeline for one logical date where step is one of:

- extract: snapshot every source table and the CSV file
- load: reload the snapshots into <table>_final tables, replace the view and export it
- all: extract then load

Load refuses to run unless both the table and the CSV snapshots exist for the date.
Running again for the same date replaces the snapshots, tables, view and exports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runDate == "" {
			runDate = actions.Today()
		}
		cfg, err := runFlags.runConfig(runDate, runStep)
		if err != nil {
			return err
		}
		return actions.RunPipeline(context.Background(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	switches.addFlag(runCmd, &runDate, "date", "", "")
	switches.addFlag(runCmd, &runStep, "step", constants.StepAll, "")
	runFlags.addFlags(runCmd)
}
