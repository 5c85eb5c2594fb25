package rdbms

import (
	"regexp"
	"strings"

	"github.com/relloyd/batchetl/rdbms/shared"
)

// SchemaTable is a [<schema>.]<table> name as typed by a user, e.g. in --exclude.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<object>" mandatory:"yes"`
}

var (
	reQuotedDottedTable = regexp.MustCompile(`^".+\..+"$`)   // "random.table"
	reQuotedSchemaTable = regexp.MustCompile(`^".+"\.".+"$`) // "schema"."table"
)

func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	}
	return SchemaTable{schema + "." + table}
}

func (st SchemaTable) isQuotedTable() bool {
	return reQuotedDottedTable.MatchString(st.SchemaTable) && !reQuotedSchemaTable.MatchString(st.SchemaTable)
}

func (st SchemaTable) split() (schema string, table string) {
	if st.isQuotedTable() { // if we have a quoted "random.table"...
		return "", st.SchemaTable
	}
	i := strings.Index(st.SchemaTable, ".")
	if i < 0 { // if we have just a table...
		return "", st.SchemaTable
	}
	return st.SchemaTable[:i], st.SchemaTable[i+1:]
}

// GetSchema returns the schema part as typed, including any quotes.
func (st SchemaTable) GetSchema() string {
	s, _ := st.split()
	return s
}

// GetTable returns the table part as typed, including any quotes.
func (st SchemaTable) GetTable() string {
	_, t := st.split()
	return t
}

// Unquoted returns the schema and table with surrounding double quotes removed.
func (st SchemaTable) Unquoted() (schema string, table string) {
	s, t := st.split()
	return unquote(s), unquote(t)
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.Replace(s[1:len(s)-1], `""`, `"`, -1)
	}
	return s
}

// Matches reports whether st names table, either bare or qualified by schema.
func (st SchemaTable) Matches(schema string, table string) bool {
	s, t := st.Unquoted()
	if t != table {
		return false
	}
	return s == "" || s == schema
}

// QualifiedName returns the name quoted for the dialect.
// Without a schema of its own the defaultSchema is used.
func (st SchemaTable) QualifiedName(d *shared.Dialect, defaultSchema string) string {
	s, t := st.Unquoted()
	if s == "" {
		s = defaultSchema
	}
	return d.QualifiedName(s, t)
}

// AppendSuffix returns a new SchemaTable with suffix added to the table name, inside any quotes.
func (st SchemaTable) AppendSuffix(suffix string) SchemaTable {
	schema, table := st.split()
	if strings.HasSuffix(table, `"`) && len(table) > 1 { // if the table is quoted...
		table = strings.TrimSuffix(table, `"`) + suffix + `"`
	} else {
		table += suffix
	}
	return NewSchemaTable(schema, table)
}

func (st SchemaTable) String() string {
	return st.SchemaTable
}
