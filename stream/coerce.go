package stream

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when text is converted to KindTimestamp.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Coerce converts a driver, CSV or snapshot value to the canonical Go type for k:
// bool, int64, float64, string, []byte or time.Time. Nil stays nil.
func Coerce(v interface{}, k Kind) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindBool:
		return toBool(v)
	case KindInt64:
		return toInt64(v)
	case KindFloat64:
		return toFloat64(v)
	case KindBytes:
		switch x := v.(type) {
		case []byte:
			b := make([]byte, len(x))
			copy(b, x)
			return b, nil
		case string:
			return []byte(x), nil
		}
		return nil, fmt.Errorf("cannot convert %T to bytes", v)
	case KindTimestamp:
		return toTime(v)
	default:
		return ToString(v), nil
	}
}

// ToString renders any value as text. Times use RFC3339 in UTC.
func ToString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func text(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case []byte:
		return strings.TrimSpace(string(x)), true
	}
	return "", false
}

func toBool(v interface{}) (interface{}, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if s, ok := text(v); ok {
		return strconv.ParseBool(s)
	}
	i, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to bool", v)
	}
	return i.(int64) != 0, nil
}

func toInt64(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("value %v overflows int64", x)
		}
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("value %v overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("value %v is not an integer", x)
		}
		if math.IsInf(x, 0) || x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, fmt.Errorf("value %v overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return toInt64(float64(x))
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	if s, ok := text(v); ok {
		return strconv.ParseInt(s, 10, 64)
	}
	return nil, fmt.Errorf("cannot convert %T to int64", v)
}

func toFloat64(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if s, ok := text(v); ok {
		return strconv.ParseFloat(s, 64)
	}
	i, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to float64", v)
	}
	return float64(i.(int64)), nil
}

func toTime(v interface{}) (interface{}, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s, ok := text(v)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to timestamp", v)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a timestamp", s)
}
