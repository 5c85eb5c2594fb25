package stream

import (
	"fmt"
)

// Column describes one column of a Frame.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Frame is a whole table held in memory: ordered columns plus rows of values.
// Values are nil or the canonical Go type of their column's Kind (see Coerce).
type Frame struct {
	Columns []Column
	Rows    [][]interface{}
}

// KindHint is an optional Kind suggested by a source, e.g. a database column type.
type KindHint struct {
	Kind  Kind
	Known bool
}

// NewFrame builds a Frame from raw rows.
// For each column the hinted Kind is used if every value converts to it, else the Kind is inferred
// from the values with infer. A nil infer uses InferKind.
func NewFrame(names []string, hints []KindHint, rows [][]interface{}, infer func([]interface{}) Kind) (*Frame, error) {
	if infer == nil {
		infer = InferKind
	}
	f := &Frame{Columns: make([]Column, len(names)), Rows: rows}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("row %v has %v values but there are %v columns", i, len(r), len(names))
		}
	}
	values := make([]interface{}, len(rows))
	for c, name := range names {
		for r := range rows {
			values[r] = rows[r][c]
		}
		f.Columns[c].Name = name
		if c < len(hints) && hints[c].Known {
			if converted, err := coerceAll(values, hints[c].Kind); err == nil {
				f.Columns[c].Kind = hints[c].Kind
				f.setColumn(c, converted)
				continue
			}
		}
		k := infer(values)
		converted, err := coerceAll(values, k)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		f.Columns[c].Kind = k
		f.setColumn(c, converted)
	}
	return f, nil
}

func coerceAll(values []interface{}, k Kind) ([]interface{}, error) {
	out := make([]interface{}, len(values))
	for i, v := range values {
		x, err := Coerce(v, k)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (f *Frame) setColumn(c int, values []interface{}) {
	for r := range f.Rows {
		f.Rows[r][c] = values[r]
	}
}

// NumRows returns the number of rows in the frame.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// ColumnNames returns the column names in order.
func (f *Frame) ColumnNames() []string {
	retval := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		retval[i] = c.Name
	}
	return retval
}

// ColumnIndex returns the position of the named column or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Record returns row i as an ordered Record.
func (f *Frame) Record(i int) Record {
	r := NewRecord()
	for c, col := range f.Columns {
		r.SetData(col.Name, f.Rows[i][c])
	}
	return r
}

// Records returns all rows as ordered Records.
func (f *Frame) Records() []Record {
	retval := make([]Record, len(f.Rows))
	for i := range f.Rows {
		retval[i] = f.Record(i)
	}
	return retval
}
