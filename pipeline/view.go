package pipeline

import (
	"fmt"
	"strings"

	"github.com/relloyd/batchetl/rdbms/shared"
)

const (
	leftAlias  = "o"
	rightAlias = "d"
)

type viewInput struct {
	schema     string
	leftTable  string
	rightTable string
	rightAlias string // prefix for right columns whose names clash with left ones
	leftCols   []string
	rightCols  []string
	joinKey    string
}

// findColumn returns the name in cols equal to name ignoring case.
func findColumn(cols []string, name string) (string, bool) {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// buildViewSelect returns the select statement for the combined view: every left column, then every
// right column except the join key, inner joined on the key. A right column named like one already
// selected is renamed <rightAlias>_<column>, with a number appended if that is taken too.
func buildViewSelect(d *shared.Dialect, in viewInput) (string, error) {
	leftKey, ok := findColumn(in.leftCols, in.joinKey)
	if !ok {
		return "", fmt.Errorf("join key %q not found in %v", in.joinKey, in.leftTable)
	}
	rightKey, ok := findColumn(in.rightCols, in.joinKey)
	if !ok {
		return "", fmt.Errorf("join key %q not found in %v", in.joinKey, in.rightTable)
	}
	used := make(map[string]bool, len(in.leftCols)+len(in.rightCols))
	fields := make([]string, 0, len(in.leftCols)+len(in.rightCols))
	for _, c := range in.leftCols {
		used[strings.ToLower(c)] = true
		fields = append(fields, leftAlias+"."+d.QuoteIdentifier(c))
	}
	for _, c := range in.rightCols {
		if c == rightKey {
			continue
		}
		if !used[strings.ToLower(c)] {
			used[strings.ToLower(c)] = true
			fields = append(fields, rightAlias+"."+d.QuoteIdentifier(c))
			continue
		}
		alias := in.rightAlias + "_" + c
		for n := 2; used[strings.ToLower(alias)]; n++ {
			alias = fmt.Sprintf("%v_%v_%v", in.rightAlias, c, n)
		}
		used[strings.ToLower(alias)] = true
		fields = append(fields, fmt.Sprintf("%v.%v as %v", rightAlias, d.QuoteIdentifier(c), d.QuoteIdentifier(alias)))
	}
	return fmt.Sprintf("select %v from %v %v inner join %v %v on %v.%v = %v.%v",
		strings.Join(fields, ", "),
		d.QualifiedName(in.schema, in.leftTable), leftAlias,
		d.QualifiedName(in.schema, in.rightTable), rightAlias,
		leftAlias, d.QuoteIdentifier(leftKey),
		rightAlias, d.QuoteIdentifier(rightKey),
	), nil
}
