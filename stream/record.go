package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	om "github.com/cevaris/ordered_map"
)

// Record is one row keyed by column name that remembers column order.
// It is what gets written to record-oriented exports.
type Record struct {
	data *om.OrderedMap // raw data values, which can represent null database values as nil interfaces.
}

func NewRecord() Record {
	return Record{data: om.NewOrderedMap()}
}

func (sr Record) SetData(name string, value interface{}) {
	sr.data.Set(name, value)
}

func (sr Record) GetData(name string) interface{} {
	val, ok := sr.data.Get(name)
	if !ok {
		panic(fmt.Sprintf("Invalid key name %q supplied while trying to fetch value from record", name))
	}
	return val
}

// MarshalJSON writes the record as a JSON object with keys in column order.
// Times are RFC3339 in UTC, bytes are text and non-finite floats are null.
func (sr Record) MarshalJSON() ([]byte, error) {
	b := &bytes.Buffer{}
	b.WriteByte('{')
	iter := sr.data.IterFunc()
	first := true
	for kv, ok := iter(); ok; kv, ok = iter() {
		if !first {
			b.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(jsonValue(kv.Value))
		if err != nil {
			return nil, fmt.Errorf("field %v: %w", kv.Key, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func jsonValue(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}
