package file

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/stream"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CsvInputOptions controls how a flat file is decoded.
type CsvInputOptions struct {
	Encoding  string // WHATWG encoding label, e.g. "windows-1252"; blank means UTF-8
	Delimiter string // single character; blank means comma
}

func (o CsvInputOptions) decoder() (transform.Transformer, error) {
	label := strings.TrimSpace(o.Encoding)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil // drop any byte order mark
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported CSV encoding %q: %w", o.Encoding, err)
	}
	return enc.NewDecoder(), nil
}

func (o CsvInputOptions) delimiter() (rune, error) {
	if o.Delimiter == "" {
		return ',', nil
	}
	d := o.Delimiter
	if d == `\t` {
		d = "\t"
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("CSV delimiter must be a single character; got %q", o.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

// ReadCsvFile reads the whole CSV file at path into a Frame.
// The first record is the header. Empty cells are null and column kinds are inferred from the text.
func ReadCsvFile(log logger.Logger, path string, opts CsvInputOptions) (*stream.Frame, error) {
	dec, err := opts.decoder()
	if err != nil {
		return nil, err
	}
	delim, err := opts.delimiter()
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening CSV file %v", path)
	}
	defer fh.Close()
	r := csv.NewReader(transform.NewReader(fh, dec))
	r.Comma = delim
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file %v is empty; a header row is required", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error reading header of %v", path)
	}
	header = dedupeHeader(header)
	r.FieldsPerRecord = len(header)
	var rows [][]interface{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %v", path)
		}
		row := make([]interface{}, len(rec))
		for i, v := range rec {
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}
	f, err := stream.NewFrame(header, nil, rows, stream.InferTextKind)
	if err != nil {
		return nil, errors.Wrapf(err, "error typing columns of %v", path)
	}
	log.Debug("read ", f.NumRows(), " rows from ", path)
	return f, nil
}

// dedupeHeader trims the column names and renames repeats to <name>.1, <name>.2 and so on.
// Names are compared case-insensitively since some databases treat columns that way.
func dedupeHeader(header []string) []string {
	retval := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		name := h
		for n := 1; seen[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%v.%v", h, n)
		}
		seen[strings.ToLower(name)] = true
		retval[i] = name
	}
	return retval
}
