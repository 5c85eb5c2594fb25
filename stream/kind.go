package stream

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the storage type of a column as it travels between databases and snapshot files.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindBytes
	KindTimestamp
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindBool:      "bool",
	KindInt64:     "int64",
	KindFloat64:   "float64",
	KindBytes:     "bytes",
	KindTimestamp: "timestamp",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the reverse of Kind.String().
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return KindString, fmt.Errorf("unknown column kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

var reTypeModifier = regexp.MustCompile(`\s*\(.*\)\s*`)

// databaseTypeKinds maps upper case database type names, as reported by the Go drivers, to a Kind.
var databaseTypeKinds = map[string]Kind{
	"BOOL": KindBool, "BOOLEAN": KindBool, "BIT": KindBool,
	"INT": KindInt64, "INT2": KindInt64, "INT4": KindInt64, "INT8": KindInt64, "INTEGER": KindInt64,
	"SMALLINT": KindInt64, "BIGINT": KindInt64, "TINYINT": KindInt64, "MEDIUMINT": KindInt64,
	"SERIAL": KindInt64, "BIGSERIAL": KindInt64, "YEAR": KindInt64,
	"FLOAT": KindFloat64, "FLOAT4": KindFloat64, "FLOAT8": KindFloat64, "REAL": KindFloat64,
	"DOUBLE": KindFloat64, "DOUBLE PRECISION": KindFloat64, "MONEY": KindFloat64, "SMALLMONEY": KindFloat64,
	"DATE": KindTimestamp, "DATETIME": KindTimestamp, "DATETIME2": KindTimestamp, "SMALLDATETIME": KindTimestamp,
	"DATETIMEOFFSET": KindTimestamp, "TIMESTAMP": KindTimestamp, "TIMESTAMPTZ": KindTimestamp,
	"TIMESTAMP WITHOUT TIME ZONE": KindTimestamp, "TIMESTAMP WITH TIME ZONE": KindTimestamp,
	"TIMESTAMP_NTZ": KindTimestamp, "TIMESTAMP_LTZ": KindTimestamp, "TIMESTAMP_TZ": KindTimestamp,
	"BYTEA": KindBytes, "BLOB": KindBytes, "BINARY": KindBytes, "VARBINARY": KindBytes, "IMAGE": KindBytes,
	"TINYBLOB": KindBytes, "MEDIUMBLOB": KindBytes, "LONGBLOB": KindBytes,
	"TEXT": KindString, "VARCHAR": KindString, "CHAR": KindString, "BPCHAR": KindString, "NAME": KindString,
	"NVARCHAR": KindString, "NCHAR": KindString, "NTEXT": KindString, "STRING": KindString, "UUID": KindString,
	"UNIQUEIDENTIFIER": KindString, "JSON": KindString, "JSONB": KindString, "TINYTEXT": KindString,
	"MEDIUMTEXT": KindString, "LONGTEXT": KindString, "CHARACTER VARYING": KindString, "CHARACTER": KindString,
	"CLOB": KindString, "ENUM": KindString, "XML": KindString, "VARIANT": KindString,
}

// KindFromDatabaseType maps a driver's DatabaseTypeName() to a Kind.
// Decimal types become KindInt64 when the driver reports a zero scale, else KindFloat64.
// ok is false when the type name is not recognised.
func KindFromDatabaseType(name string, scale int64, hasScale bool) (k Kind, ok bool) {
	n := strings.ToUpper(strings.TrimSpace(reTypeModifier.ReplaceAllString(name, "")))
	n = strings.TrimPrefix(strings.TrimSuffix(n, " UNSIGNED"), "UNSIGNED ")
	switch n {
	case "NUMERIC", "DECIMAL", "NUMBER", "FIXED", "DEC":
		if hasScale && scale == 0 {
			return KindInt64, true
		}
		return KindFloat64, true
	}
	k, ok = databaseTypeKinds[n]
	return
}

// KindOfValue returns the Kind that best describes a single non-nil value.
func KindOfValue(v interface{}) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt64
	case float32, float64:
		return KindFloat64
	case []byte:
		return KindBytes
	case time.Time:
		return KindTimestamp
	default:
		return KindString
	}
}

// InferKind returns the narrowest Kind able to hold every non-nil value.
// Mixed integer and float columns widen to KindFloat64; any other mix becomes KindString.
// A column of nulls is KindString.
func InferKind(values []interface{}) Kind {
	seen := false
	var k Kind
	for _, v := range values {
		if v == nil {
			continue
		}
		vk := KindOfValue(v)
		if !seen {
			k, seen = vk, true
			continue
		}
		k = widen(k, vk)
	}
	if !seen {
		return KindString
	}
	return k
}

func widen(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case (a == KindInt64 && b == KindFloat64) || (a == KindFloat64 && b == KindInt64):
		return KindFloat64
	default:
		return KindString
	}
}

// InferTextKind returns the Kind that all non-nil text values parse as, trying
// int64, then float64, then bool (true/false in any case), then falling back to KindString.
func InferTextKind(values []interface{}) Kind {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return InferKind(values)
		}
		seen = true
		s = strings.TrimSpace(s)
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			l := strings.ToLower(s)
			isBool = l == "true" || l == "false"
		}
		if !isInt && !isFloat && !isBool {
			return KindString
		}
	}
	switch {
	case !seen:
		return KindString
	case isInt:
		return KindInt64
	case isFloat:
		return KindFloat64
	case isBool:
		return KindBool
	}
	return KindString
}
