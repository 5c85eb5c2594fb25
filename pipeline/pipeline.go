package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/aws/s3"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/file"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stats"
	tabledefinition "github.com/relloyd/batchetl/table-definition"
)

// Operation names used in StepErrors and logs.
const (
	OpDiscoverTables     = "discover_tables"
	OpExtractRelational  = "extract_relational"
	OpExtractFlatFile    = "extract_flat_file"
	OpReload             = "reload"
	OpCreateCombinedView = "create_combined_view"
	OpExportResults      = "export_results"
	OpPublishResults     = "publish_results"
)

// BatchETL snapshots a source database and a CSV file for one logical date, reloads the snapshots
// into <table>_final tables, and publishes and exports a view joining two of them.
// Database connections are opened on first use and released by Close.
type BatchETL struct {
	cfg      Config
	log      logger.Logger
	stats    *stats.RunStatsManager
	source   shared.Connector
	target   shared.Connector
	excludes []rdbms.SchemaTable
}

// New validates cfg and returns a BatchETL for cfg.LogicalDate.
func New(cfg Config, log logger.Logger) (*BatchETL, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &BatchETL{cfg: cfg, log: log, stats: stats.NewRunStats(log)}
	for _, e := range cfg.Exclude {
		b.excludes = append(b.excludes, rdbms.SchemaTable{SchemaTable: e})
	}
	return b, nil
}

// Config returns the settings in use, defaults included.
func (b *BatchETL) Config() Config {
	return b.cfg
}

// fail logs and returns a StepError.
func (b *BatchETL) fail(op string, kind Kind, table string, err error) error {
	se := &StepError{Op: op, Kind: kind, Table: table, Err: err}
	b.log.Error(se)
	return se
}

func (b *BatchETL) sourceConn(ctx context.Context) (shared.Connector, error) {
	if b.source != nil {
		return b.source, nil
	}
	conn, err := rdbms.OpenDbConnection(ctx, b.log, shared.DsnConnectionDetails{Dsn: b.cfg.SourceDsn})
	if err != nil {
		return nil, err
	}
	b.source = conn
	if b.cfg.TargetDsn == b.cfg.SourceDsn && b.target == nil {
		b.target = conn
	}
	return conn, nil
}

func (b *BatchETL) targetConn(ctx context.Context) (shared.Connector, error) {
	if b.target != nil {
		return b.target, nil
	}
	if b.cfg.TargetDsn == b.cfg.SourceDsn {
		return b.sourceConn(ctx)
	}
	conn, err := rdbms.OpenDbConnection(ctx, b.log, shared.DsnConnectionDetails{Dsn: b.cfg.TargetDsn})
	if err != nil {
		return nil, err
	}
	b.target = conn
	return conn, nil
}

// schemaFor returns the configured schema, else public on PostgreSQL, else blank for the
// connection's default.
func (b *BatchETL) schemaFor(conn shared.Connector) string {
	if b.cfg.Schema != "" {
		return b.cfg.Schema
	}
	if conn.GetType() == constants.ConnectionTypePostgres {
		return constants.SchemaDefaultPostgres
	}
	return ""
}

// isOwnOutput reports whether table is something this job writes or the user excluded.
func (b *BatchETL) isOwnOutput(schema string, table string) bool {
	if strings.HasSuffix(table, constants.TargetTableSuffix) {
		return true
	}
	if table == b.cfg.View.Name {
		return true
	}
	for _, e := range b.excludes {
		if e.Matches(schema, table) {
			return true
		}
	}
	return false
}

// DiscoverTables returns the sorted names of the source tables to extract.
func (b *BatchETL) DiscoverTables(ctx context.Context) ([]string, error) {
	conn, err := b.sourceConn(ctx)
	if err != nil {
		return nil, b.fail(OpDiscoverTables, KindCatalogUnreachable, "", err)
	}
	schema := b.schemaFor(conn)
	all, err := rdbms.ListTables(ctx, b.log, conn, schema)
	if err != nil {
		return nil, b.fail(OpDiscoverTables, KindCatalogUnreachable, "", err)
	}
	tables := make([]string, 0, len(all))
	for _, t := range all {
		if b.isOwnOutput(schema, t) {
			b.log.Debug("skipping table ", t)
			continue
		}
		tables = append(tables, t)
	}
	b.log.Info("discovered ", len(tables), " tables to extract: ", tables)
	return tables, nil
}

// ExtractRelational snapshots every discovered table. It stops at the first failure; snapshots
// already written are kept.
func (b *BatchETL) ExtractRelational(ctx context.Context) error {
	tables, err := b.DiscoverTables(ctx)
	if err != nil {
		return err
	}
	conn, err := b.sourceConn(ctx)
	if err != nil {
		return b.fail(OpExtractRelational, KindCatalogUnreachable, "", err)
	}
	d := conn.GetDialect()
	schema := b.schemaFor(conn)
	for _, table := range tables { // for each table...
		if err = ctx.Err(); err != nil {
			return b.fail(OpExtractRelational, KindReadFailed, table, err)
		}
		sw := b.stats.StartStep("extract " + table)
		f, err := rdbms.QueryFrame(ctx, b.log, conn, "select * from "+d.QualifiedName(schema, table))
		if err != nil {
			sw.Stop(0, err)
			return b.fail(OpExtractRelational, KindReadFailed, table, err)
		}
		path := b.cfg.Layout.RelationalSnapshot(table, b.cfg.LogicalDate)
		if err = file.WriteSnapshot(b.log, path, f); err != nil {
			sw.Stop(0, err)
			return b.fail(OpExtractRelational, KindWriteFailed, table, err)
		}
		sw.Stop(f.NumRows(), nil)
		b.log.Info("extracted ", f.NumRows(), " rows from ", table, " to ", path)
	}
	return nil
}

// ExtractFlatFile snapshots the CSV file.
func (b *BatchETL) ExtractFlatFile(ctx context.Context) error {
	path := b.cfg.FlatFilePath
	if err := ctx.Err(); err != nil {
		return b.fail(OpExtractFlatFile, KindReadFailed, path, err)
	}
	sw := b.stats.StartStep("extract " + b.cfg.Layout.FlatFileName)
	f, err := file.ReadCsvFile(b.log, path, file.CsvInputOptions{
		Encoding:  b.cfg.FlatFileEncoding,
		Delimiter: b.cfg.FlatFileDelimiter,
	})
	if err != nil {
		sw.Stop(0, err)
		return b.fail(OpExtractFlatFile, KindReadFailed, path, err)
	}
	out := b.cfg.Layout.FlatFileSnapshot(b.cfg.LogicalDate)
	if err = file.WriteSnapshot(b.log, out, f); err != nil {
		sw.Stop(0, err)
		return b.fail(OpExtractFlatFile, KindWriteFailed, path, err)
	}
	sw.Stop(f.NumRows(), nil)
	b.log.Info("extracted ", f.NumRows(), " rows from ", path, " to ", out)
	return nil
}

// VerifyExtractionComplete reports whether snapshots of both kinds exist for the logical date.
// It checks presence only.
func (b *BatchETL) VerifyExtractionComplete() bool {
	rel, err := b.cfg.Layout.RelationalSnapshotsExist(b.cfg.LogicalDate)
	if err != nil {
		b.log.Warn("error checking relational snapshots: ", err)
		return false
	}
	flat, err := b.cfg.Layout.FlatFileSnapshotsExist(b.cfg.LogicalDate)
	if err != nil {
		b.log.Warn("error checking flat file snapshots: ", err)
		return false
	}
	b.log.Debug("relational snapshots found = ", rel, "; flat file snapshots found = ", flat)
	return rel && flat
}

// Reload replaces each <table>_final in the target with the snapshot for the logical date and
// then recreates the combined view. Nothing is touched unless extraction is complete.
// Tables are replaced one at a time; an error leaves earlier tables reloaded.
func (b *BatchETL) Reload(ctx context.Context) error {
	if !b.VerifyExtractionComplete() {
		return b.fail(OpReload, KindPreconditionUnmet, "", errors.Errorf("snapshots are missing for %v", b.cfg.LogicalDate))
	}
	conn, err := b.targetConn(ctx)
	if err != nil {
		return b.fail(OpReload, KindWriteFailed, "", err)
	}
	tables, err := b.cfg.Layout.RelationalSnapshotTables(b.cfg.LogicalDate)
	if err != nil {
		return b.fail(OpReload, KindReadFailed, "", err)
	}
	type snapshot struct {
		table string
		path  string
	}
	snapshots := make([]snapshot, 0, len(tables)+1)
	for _, t := range tables {
		snapshots = append(snapshots, snapshot{t, b.cfg.Layout.RelationalSnapshot(t, b.cfg.LogicalDate)})
	}
	flat := b.cfg.Layout.FlatFileSnapshot(b.cfg.LogicalDate)
	if _, err = os.Stat(flat); err == nil {
		snapshots = append(snapshots, snapshot{b.cfg.Layout.FlatFileName, flat})
	}
	schema := b.schemaFor(conn)
	for _, s := range snapshots { // for each snapshot...
		if err = ctx.Err(); err != nil {
			return b.fail(OpReload, KindWriteFailed, s.table, err)
		}
		target := s.table + constants.TargetTableSuffix
		sw := b.stats.StartStep("load " + target)
		f, err := file.ReadSnapshot(b.log, s.path)
		if err != nil {
			sw.Stop(0, err)
			return b.fail(OpReload, KindReadFailed, s.table, err)
		}
		n, err := rdbms.ReplaceTable(ctx, b.log, conn, schema, target, f, b.cfg.BatchSize)
		if err != nil {
			sw.Stop(0, err)
			return b.fail(OpReload, KindWriteFailed, target, err)
		}
		sw.Stop(n, nil)
		b.log.Info("loaded ", n, " rows into ", target)
	}
	return b.CreateCombinedView(ctx)
}

// CreateCombinedView creates or replaces the view joining the left and right _final tables.
func (b *BatchETL) CreateCombinedView(ctx context.Context) error {
	v := b.cfg.View
	conn, err := b.targetConn(ctx)
	if err != nil {
		return b.fail(OpCreateCombinedView, KindWriteFailed, v.Name, err)
	}
	schema := b.schemaFor(conn)
	left := v.LeftTable + constants.TargetTableSuffix
	right := v.RightTable + constants.TargetTableSuffix
	var cols [2][]string
	for i, t := range []string{left, right} {
		def, err := tabledefinition.GetTableDefinition(ctx, b.log, conn, schema, t)
		if errors.Is(err, tabledefinition.ErrNoColumns) {
			return b.fail(OpCreateCombinedView, KindPreconditionUnmet, t, err)
		}
		if err != nil {
			return b.fail(OpCreateCombinedView, KindReadFailed, t, err)
		}
		cols[i] = def.ColumnNames()
	}
	sel, err := buildViewSelect(conn.GetDialect(), viewInput{
		schema:     schema,
		leftTable:  left,
		rightTable: right,
		rightAlias: v.RightTable,
		leftCols:   cols[0],
		rightCols:  cols[1],
		joinKey:    v.JoinKey,
	})
	if err != nil {
		return b.fail(OpCreateCombinedView, KindPreconditionUnmet, v.Name, err)
	}
	if err = rdbms.ReplaceView(ctx, b.log, conn, schema, v.Name, sel); err != nil {
		return b.fail(OpCreateCombinedView, KindWriteFailed, v.Name, err)
	}
	b.log.Info("created view ", v.Name)
	return nil
}

// ExportResults writes the full content of the view to the CSV and JSON exports for the logical date.
func (b *BatchETL) ExportResults(ctx context.Context) error {
	v := b.cfg.View.Name
	conn, err := b.targetConn(ctx)
	if err != nil {
		return b.fail(OpExportResults, KindReadFailed, v, err)
	}
	sw := b.stats.StartStep("export " + v)
	f, err := rdbms.QueryFrame(ctx, b.log, conn, "select * from "+conn.GetDialect().QualifiedName(b.schemaFor(conn), v))
	if err != nil {
		sw.Stop(0, err)
		return b.fail(OpExportResults, KindReadFailed, v, err)
	}
	csvPath := b.cfg.Layout.ExportCsv(v, b.cfg.LogicalDate)
	if err = file.WriteCsvExport(b.log, csvPath, f); err != nil {
		sw.Stop(0, err)
		return b.fail(OpExportResults, KindWriteFailed, csvPath, err)
	}
	jsonPath := b.cfg.Layout.ExportJson(v, b.cfg.LogicalDate)
	if err = file.WriteJsonExport(b.log, jsonPath, f); err != nil {
		sw.Stop(0, err)
		return b.fail(OpExportResults, KindWriteFailed, jsonPath, err)
	}
	sw.Stop(f.NumRows(), nil)
	b.log.Info("exported ", f.NumRows(), " rows to ", csvPath, " and ", jsonPath)
	return nil
}

// ExportFiles returns the CSV and JSON export paths for the logical date.
func (b *BatchETL) ExportFiles() []string {
	return []string{
		b.cfg.Layout.ExportCsv(b.cfg.View.Name, b.cfg.LogicalDate),
		b.cfg.Layout.ExportJson(b.cfg.View.Name, b.cfg.LogicalDate),
	}
}

// PublishResults uploads the export files to results/<file> using up.
func (b *BatchETL) PublishResults(ctx context.Context, up s3.BufferPutter) error {
	for _, path := range b.ExportFiles() {
		key := constants.ResultsDirDefault + "/" + filepath.Base(path)
		if err := b.putFile(ctx, up, path, key); err != nil {
			return b.fail(OpPublishResults, KindWriteFailed, path, err)
		}
		b.log.Info("published ", path, " to ", key)
	}
	return nil
}

func (b *BatchETL) putFile(ctx context.Context, up s3.BufferPutter, path string, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrapf(up.BufferPut(ctx, key, f), "error uploading %v", key)
}

// Summary returns per-step statistics in the order the steps ran.
func (b *BatchETL) Summary() []stats.Stats {
	return b.stats.GetStats()
}

// LogSummary logs one line per step.
func (b *BatchETL) LogSummary() {
	b.stats.LogStats()
}

// Close releases any database connections.
func (b *BatchETL) Close() error {
	var err error
	if b.target != nil && b.target != b.source {
		err = b.target.Close()
	}
	if b.source != nil {
		if e := b.source.Close(); e != nil && err == nil {
			err = e
		}
	}
	b.source, b.target = nil, nil
	return err
}
