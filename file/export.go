package file

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/stream"
)

const exportTimeFormat = "2006-01-02 15:04:05.999999"

// csvValue renders one value for a CSV export; null is an empty field.
func csvValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(exportTimeFormat)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return stream.ToString(v)
	}
}

// writeAtomic writes the file beside path via fn and renames it into place.
func writeAtomic(path string, fn func(w *bufio.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return errors.Wrapf(err, "error creating directory for %v", path)
	}
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "error creating %v", tmp)
	}
	w := bufio.NewWriter(fh)
	if err = fn(w); err == nil {
		err = w.Flush()
	}
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "error writing %v", path)
	}
	return replaceFile(tmp, path)
}

// WriteCsvExport writes f to path as CSV with a header row.
func WriteCsvExport(log logger.Logger, path string, f *stream.Frame) error {
	err := writeAtomic(path, func(w *bufio.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(f.ColumnNames()); err != nil {
			return err
		}
		rec := make([]string, len(f.Columns))
		for _, row := range f.Rows {
			for i, v := range row {
				rec[i] = csvValue(v)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return err
	}
	log.Info("Exported ", f.NumRows(), " rows to ", path)
	return nil
}

// WriteJsonExport writes f to path as a JSON array of records with keys in column order.
func WriteJsonExport(log logger.Logger, path string, f *stream.Frame) error {
	err := writeAtomic(path, func(w *bufio.Writer) error {
		records := f.Records()
		if records == nil {
			records = []stream.Record{}
		}
		b, err := json.Marshal(records)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	})
	if err != nil {
		return err
	}
	log.Info("Exported ", f.NumRows(), " records to ", path)
	return nil
}
