package pipeline

import (
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/file"
	"github.com/relloyd/batchetl/helper"
)

// ViewConfig describes the combined view: LeftTable joined to RightTable on JoinKey.
// Table names are source names; the view reads their reloaded <name>_final tables.
// Blank fields take the orders_complete defaults.
type ViewConfig struct {
	Name       string
	LeftTable  string
	RightTable string
	JoinKey    string
}

// Config holds everything a BatchETL needs for one logical date.
type Config struct {
	SourceDsn         string `errorTxt:"source connection string" mandatory:"yes"`
	TargetDsn         string // defaults to SourceDsn
	FlatFilePath      string `errorTxt:"CSV file path" mandatory:"yes"`
	FlatFileEncoding  string
	FlatFileDelimiter string
	LogicalDate       string `errorTxt:"logical date" mandatory:"yes"`
	Layout            file.Layout
	Schema            string   // blank means public on PostgreSQL, else the connection's default
	Exclude           []string // [<schema>.]<table> names never extracted
	BatchSize         int
	View              ViewConfig
}

// DefaultViewConfig returns the orders_complete view.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		Name:       constants.ViewNameDefault,
		LeftTable:  constants.ViewLeftTableDefault,
		RightTable: constants.ViewRightTableDefault,
		JoinKey:    constants.ViewJoinKeyDefault,
	}
}

// withDefaults returns a copy of c with blank optional settings filled in.
func (c Config) withDefaults() Config {
	if c.TargetDsn == "" {
		c.TargetDsn = c.SourceDsn
	}
	d := file.DefaultLayout()
	if c.Layout.DataDir == "" {
		c.Layout.DataDir = d.DataDir
	}
	if c.Layout.ResultsDir == "" {
		c.Layout.ResultsDir = d.ResultsDir
	}
	if c.Layout.RelationalDir == "" {
		c.Layout.RelationalDir = d.RelationalDir
	}
	if c.Layout.FlatFileDir == "" {
		c.Layout.FlatFileDir = d.FlatFileDir
	}
	if c.Layout.FlatFileName == "" {
		c.Layout.FlatFileName = d.FlatFileName
	}
	if c.BatchSize <= 0 {
		c.BatchSize = constants.InsertBatchSizeDefault
	}
	v := DefaultViewConfig()
	if c.View.Name == "" {
		c.View.Name = v.Name
	}
	if c.View.LeftTable == "" {
		c.View.LeftTable = v.LeftTable
	}
	if c.View.RightTable == "" {
		c.View.RightTable = v.RightTable
	}
	if c.View.JoinKey == "" {
		c.View.JoinKey = v.JoinKey
	}
	return c
}

// Validate checks mandatory settings and the logical date.
func (c Config) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	return helper.ValidateLogicalDate(c.LogicalDate)
}
