package file

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/stream"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	parquetInt64           = "type=INT64, repetitiontype=OPTIONAL"
	parquetBoolean         = "type=BOOLEAN, repetitiontype=OPTIONAL"
	parquetDouble          = "type=DOUBLE, repetitiontype=OPTIONAL"
	parquetString          = "type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"
	parquetBytes           = "type=BYTE_ARRAY, repetitiontype=OPTIONAL"
	parquetTimestampMicros = "type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL"
)

var kindToParquetType = map[stream.Kind]string{
	stream.KindInt64:     parquetInt64,
	stream.KindBool:      parquetBoolean,
	stream.KindFloat64:   parquetDouble,
	stream.KindString:    parquetString,
	stream.KindBytes:     parquetBytes,
	stream.KindTimestamp: parquetTimestampMicros,
}

var reParquetName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// parquetSchema returns the CSVWriter schema for cols.
// Column names are reduced to characters the schema tag parser accepts and made unique, ignoring case;
// the real names travel in the footer metadata.
func parquetSchema(cols []stream.Column) ([]string, error) {
	seen := make(map[string]bool, len(cols))
	pSchema := make([]string, 0, len(cols))
	for i, c := range cols {
		pType, ok := kindToParquetType[c.Kind]
		if !ok {
			return nil, fmt.Errorf("unsupported column kind %v for parquet", c.Kind)
		}
		name := reParquetName.ReplaceAllString(c.Name, "_")
		if name == "" || strings.Trim(name, "_") == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		for seen[strings.ToLower(name)] {
			name = fmt.Sprintf("%v_%d", name, i)
		}
		seen[strings.ToLower(name)] = true
		pSchema = append(pSchema, fmt.Sprintf("name=%s, %s", name, pType))
	}
	return pSchema, nil
}

func parquetValue(v interface{}, k stream.Kind) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	x, err := stream.Coerce(v, k)
	if err != nil {
		return nil, err
	}
	switch k {
	case stream.KindBytes:
		return string(x.([]byte)), nil
	case stream.KindTimestamp:
		return x.(time.Time).UnixMicro(), nil
	}
	return x, nil
}

// WriteSnapshot writes f to a Parquet file at path, creating directories as needed.
// The file is written beside path and renamed into place when complete.
func WriteSnapshot(log logger.Logger, path string, f *stream.Frame) (err error) {
	if len(f.Columns) == 0 {
		return fmt.Errorf("no columns to write to %v", path)
	}
	pSchema, err := parquetSchema(f.Columns)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(f.Columns)
	if err != nil {
		return err
	}
	if err = ensureDir(path); err != nil {
		return errors.Wrapf(err, "error creating directory for %v", path)
	}
	tmp := path + ".tmp"
	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return errors.Wrapf(err, "error creating %v", tmp)
	}
	pw, err := writer.NewCSVWriter(pSchema, fw, constants.ParquetParallelWriters)
	if err != nil {
		_ = fw.Close()
		return errors.Wrap(err, "error creating parquet writer")
	}
	row := make([]interface{}, len(f.Columns))
	for r, values := range f.Rows {
		for c, col := range f.Columns {
			if row[c], err = parquetValue(values[c], col.Kind); err != nil {
				_ = fw.Close()
				return errors.Wrapf(err, "row %v column %q", r, col.Name)
			}
		}
		if err = pw.Write(row); err != nil {
			_ = fw.Close()
			return errors.Wrapf(err, "error writing row %v to %v", r, tmp)
		}
		row = make([]interface{}, len(f.Columns)) // the writer keeps the slice until flushed
	}
	v := string(meta)
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{Key: constants.ParquetColumnsMetadataKey, Value: &v})
	if err = pw.WriteStop(); err != nil {
		_ = fw.Close()
		return errors.Wrapf(err, "error finishing %v", tmp)
	}
	if err = fw.Close(); err != nil {
		return errors.Wrapf(err, "error closing %v", tmp)
	}
	if err = replaceFile(tmp, path); err != nil {
		return errors.Wrapf(err, "error renaming snapshot into place at %v", path)
	}
	log.Debug("wrote ", f.NumRows(), " rows to ", path)
	return nil
}

// ReadSnapshot reads a Parquet file written by WriteSnapshot back into a Frame.
func ReadSnapshot(log logger.Logger, path string) (*stream.Frame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %v", path)
	}
	defer func() {
		_ = fr.Close()
	}()
	pr, err := reader.NewParquetColumnReader(fr, constants.ParquetParallelWriters)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading parquet footer of %v", path)
	}
	defer pr.ReadStop()
	cols, err := snapshotColumns(pr.Footer)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading columns of %v", path)
	}
	numRows := pr.GetNumRows()
	f := &stream.Frame{Columns: cols, Rows: make([][]interface{}, numRows)}
	for r := range f.Rows {
		f.Rows[r] = make([]interface{}, len(cols))
	}
	if numRows == 0 {
		return f, nil
	}
	for c, col := range cols {
		values, _, _, err := pr.ReadColumnByIndex(int64(c), numRows)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading column %q of %v", col.Name, path)
		}
		if int64(len(values)) != numRows {
			return nil, fmt.Errorf("column %q of %v has %v values for %v rows", col.Name, path, len(values), numRows)
		}
		for r, v := range values {
			if f.Rows[r][c], err = fromParquetValue(v, col.Kind); err != nil {
				return nil, errors.Wrapf(err, "row %v column %q", r, col.Name)
			}
		}
	}
	log.Debug("read ", numRows, " rows from ", path)
	return f, nil
}

func fromParquetValue(v interface{}, k stream.Kind) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case stream.KindTimestamp:
		micros, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("expected int64 timestamp; got %T", v)
		}
		return time.UnixMicro(micros).UTC(), nil
	case stream.KindBytes:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	}
	return stream.Coerce(v, k)
}

// snapshotColumns returns the columns recorded in the footer metadata, or derives them from the
// Parquet schema for files written elsewhere.
func snapshotColumns(footer *parquet.FileMetaData) ([]stream.Column, error) {
	for _, kv := range footer.KeyValueMetadata {
		if kv.Key == constants.ParquetColumnsMetadataKey && kv.Value != nil {
			var cols []stream.Column
			if err := json.Unmarshal([]byte(*kv.Value), &cols); err != nil {
				return nil, err
			}
			return cols, nil
		}
	}
	if len(footer.Schema) < 2 {
		return nil, errors.New("parquet schema has no columns")
	}
	cols := make([]stream.Column, 0, len(footer.Schema)-1)
	for _, el := range footer.Schema[1:] { // skip the root element
		c := stream.Column{Name: el.Name, Kind: stream.KindString}
		if el.Type != nil {
			switch *el.Type {
			case parquet.Type_BOOLEAN:
				c.Kind = stream.KindBool
			case parquet.Type_INT32, parquet.Type_INT64:
				c.Kind = stream.KindInt64
				if el.ConvertedType != nil && *el.ConvertedType == parquet.ConvertedType_TIMESTAMP_MICROS {
					c.Kind = stream.KindTimestamp
				}
			case parquet.Type_FLOAT, parquet.Type_DOUBLE:
				c.Kind = stream.KindFloat64
			case parquet.Type_BYTE_ARRAY:
				if el.ConvertedType == nil {
					c.Kind = stream.KindBytes
				}
			}
		}
		cols = append(cols, c)
	}
	return cols, nil
}
