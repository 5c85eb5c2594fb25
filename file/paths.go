package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relloyd/batchetl/constants"
)

// Layout is the directory layout of snapshots and exports.
// Snapshots for one logical date live beside those of other dates and are never removed.
type Layout struct {
	DataDir       string // root of all snapshots
	ResultsDir    string // root of exports
	RelationalDir string // sub-directory of DataDir for per-table snapshots
	FlatFileDir   string // sub-directory of DataDir for the flat-file snapshot
	FlatFileName  string // base name of the flat-file snapshot
}

// DefaultLayout returns the layout relative to the working directory.
func DefaultLayout() Layout {
	return Layout{
		DataDir:       constants.DataDirDefault,
		ResultsDir:    constants.ResultsDirDefault,
		RelationalDir: constants.RelationalDirDefault,
		FlatFileDir:   constants.FlatFileDirDefault,
		FlatFileName:  constants.FlatFileNameDefault,
	}
}

// RelationalRoot is the directory holding one sub-directory per table.
func (l Layout) RelationalRoot() string {
	return filepath.Join(l.DataDir, l.RelationalDir)
}

// RelationalSnapshot returns data/<relational>/<table>/<date>/<table>.parquet.
func (l Layout) RelationalSnapshot(table string, date string) string {
	return filepath.Join(l.RelationalRoot(), table, date, fmt.Sprintf("%v.%v", table, constants.SnapshotFileExt))
}

// FlatFileSnapshotDir returns data/<flatfile>/<date>.
func (l Layout) FlatFileSnapshotDir(date string) string {
	return filepath.Join(l.DataDir, l.FlatFileDir, date)
}

// FlatFileSnapshot returns data/<flatfile>/<date>/<name>.parquet.
func (l Layout) FlatFileSnapshot(date string) string {
	return filepath.Join(l.FlatFileSnapshotDir(date), fmt.Sprintf("%v.%v", l.FlatFileName, constants.SnapshotFileExt))
}

// ExportCsv returns results/<view>_<date>.csv.
func (l Layout) ExportCsv(view string, date string) string {
	return filepath.Join(l.ResultsDir, fmt.Sprintf("%v_%v.%v", view, date, constants.ExportCsvExt))
}

// ExportJson returns results/<view>_<date>.json.
func (l Layout) ExportJson(view string, date string) string {
	return filepath.Join(l.ResultsDir, fmt.Sprintf("%v_%v.%v", view, date, constants.ExportJsonExt))
}

// LogFile returns logs/etl_<date>.log.
func LogFile(logsDir string, date string) string {
	return filepath.Join(logsDir, fmt.Sprintf("%v%v.log", constants.LogFilePrefix, date))
}

// RelationalSnapshotsExist reports whether any data/<relational>/*/<date>/*.parquet exists.
func (l Layout) RelationalSnapshotsExist(date string) (bool, error) {
	m, err := filepath.Glob(filepath.Join(l.RelationalRoot(), "*", date, "*."+constants.SnapshotFileExt))
	if err != nil {
		return false, err
	}
	return len(m) > 0, nil
}

// FlatFileSnapshotsExist reports whether any data/<flatfile>/<date>/*.parquet exists.
func (l Layout) FlatFileSnapshotsExist(date string) (bool, error) {
	m, err := filepath.Glob(filepath.Join(l.FlatFileSnapshotDir(date), "*."+constants.SnapshotFileExt))
	if err != nil {
		return false, err
	}
	return len(m) > 0, nil
}

// RelationalSnapshotTables returns the sorted table directories under the relational root that hold
// a snapshot for date.
func (l Layout) RelationalSnapshotTables(date string) ([]string, error) {
	entries, err := os.ReadDir(l.RelationalRoot())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, e := range entries { // ReadDir sorts by name
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(l.RelationalSnapshot(e.Name(), date)); err == nil {
			tables = append(tables, e.Name())
		}
	}
	return tables, nil
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// replaceFile renames tmp over path so readers never see a partly written file.
func replaceFile(tmp string, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
