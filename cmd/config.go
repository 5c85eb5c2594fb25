package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/relloyd/batchetl/config"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show settings and configure connections",
	Long: fmt.Sprintf(`Show resolved settings and configure connections where:

- Connections and default flag values are stored in file %q (see --config)
- Keys of the file are flag names, e.g. csv-path: /data/order_details.csv
`, config.DefaultPath()),
}

// shownSettings is the resolved pipeline configuration printed by 'config show'.
type shownSettings struct {
	ConfigFile   string   `yaml:"config" json:"config"`
	SourceConn   string   `yaml:"postgres-conn" json:"postgres-conn"`
	TargetConn   string   `yaml:"target-conn" json:"target-conn"`
	CsvPath      string   `yaml:"csv-path" json:"csv-path"`
	CsvEncoding  string   `yaml:"csv-encoding" json:"csv-encoding"`
	CsvDelimiter string   `yaml:"csv-delimiter" json:"csv-delimiter"`
	DataDir      string   `yaml:"data-dir" json:"data-dir"`
	ResultsDir   string   `yaml:"results-dir" json:"results-dir"`
	LogsDir      string   `yaml:"logs-dir" json:"logs-dir"`
	Schema       string   `yaml:"schema" json:"schema"`
	Exclude      []string `yaml:"exclude" json:"exclude"`
	BatchSize    int      `yaml:"batch-size" json:"batch-size"`
	S3Bucket     string   `yaml:"s3-bucket,omitempty" json:"s3-bucket,omitempty"`
	S3Prefix     string   `yaml:"s3-prefix,omitempty" json:"s3-prefix,omitempty"`
	S3Region     string   `yaml:"s3-region,omitempty" json:"s3-region,omitempty"`
	ViewName     string   `yaml:"view-name" json:"view-name"`
	ViewLeft     string   `yaml:"view-left" json:"view-left"`
	ViewRight    string   `yaml:"view-right" json:"view-right"`
	ViewKey      string   `yaml:"view-key" json:"view-key"`
	LogLevel     string   `yaml:"log-level" json:"log-level"`
}

var showFlags = pipelineFlags{}
var showOutput string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings with passwords redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := showFlags.runConfig("", "")
		if err != nil {
			return err
		}
		p := cfg.Pipeline
		s := shownSettings{
			ConfigFile:   configFile.FullPath,
			SourceConn:   redactDsn(p.SourceDsn),
			TargetConn:   redactDsn(p.TargetDsn),
			CsvPath:      p.FlatFilePath,
			CsvEncoding:  p.FlatFileEncoding,
			CsvDelimiter: p.FlatFileDelimiter,
			DataDir:      p.Layout.DataDir,
			ResultsDir:   p.Layout.ResultsDir,
			LogsDir:      cfg.LogsDir,
			Schema:       p.Schema,
			Exclude:      p.Exclude,
			BatchSize:    p.BatchSize,
			ViewName:     p.View.Name,
			ViewLeft:     p.View.LeftTable,
			ViewRight:    p.View.RightTable,
			ViewKey:      p.View.JoinKey,
			LogLevel:     cfg.LogLevel,
		}
		if cfg.S3 != nil {
			s.S3Bucket, s.S3Prefix, s.S3Region = cfg.S3.Name, cfg.S3.Prefix, cfg.S3.Region
		}
		return writeSettings(s, showOutput)
	},
}

func writeSettings(s shownSettings, yamlOrJson string) error {
	var b []byte
	var err error
	switch yamlOrJson {
	case "yaml":
		b, err = yaml.Marshal(s)
	case "json":
		b, err = json.MarshalIndent(s, "", "  ")
		b = append(b, '\n')
	default:
		return fmt.Errorf("unsupported output format %q", yamlOrJson)
	}
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}

func redactDsn(dsn string) string {
	if dsn == "" {
		return ""
	}
	return shared.DsnConnectionDetails{Dsn: dsn}.String()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	showFlags.addFlags(configShowCmd)
	switches.addFlag(configShowCmd, &showOutput, "output", "yaml", "")
}
