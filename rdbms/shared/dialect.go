package shared

import (
	"fmt"
	"strings"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/stream"
)

type bindStyle int

const (
	bindQuestion bindStyle = iota // ?
	bindDollar                    // $1
	bindAtP                       // @p1
)

// Dialect holds the SQL differences between the supported database types.
type Dialect struct {
	Name             string
	DriverName       string
	quoteStart       string
	quoteEnd         string
	bind             bindStyle
	MaxBindVars      int    // max bind variables allowed in one statement
	TablesWithSchema string // catalog query listing base tables; bind 1 is the schema
	TablesNoSchema   string // catalog query listing base tables in the connection's default schema
	dropTable        string // fmt template taking the qualified table name
	viewStatements   []string
	TransactionalDdl bool // true if DROP/CREATE TABLE can be rolled back with the inserts
	DataTypes        map[stream.Kind]string
}

// dialects is keyed by connection type.
var dialects = map[string]*Dialect{
	constants.ConnectionTypePostgres: {
		Name:             constants.ConnectionTypePostgres,
		DriverName:       constants.DriverNamePostgres,
		quoteStart:       `"`,
		quoteEnd:         `"`,
		bind:             bindDollar,
		MaxBindVars:      65535,
		TablesWithSchema: `select table_name from information_schema.tables where table_schema = $1 and table_type = 'BASE TABLE'`,
		TablesNoSchema:   `select table_name from information_schema.tables where table_schema = current_schema() and table_type = 'BASE TABLE'`,
		dropTable:        "drop table if exists %v cascade", // cascade removes the combined view too; it is recreated after the reload
		viewStatements:   []string{"create or replace view %[1]v as %[2]v"},
		TransactionalDdl: true,
		DataTypes: map[stream.Kind]string{
			stream.KindBool:      "boolean",
			stream.KindInt64:     "bigint",
			stream.KindFloat64:   "double precision",
			stream.KindString:    "text",
			stream.KindBytes:     "bytea",
			stream.KindTimestamp: "timestamp",
		},
	},
	constants.ConnectionTypeMySql: {
		Name:             constants.ConnectionTypeMySql,
		DriverName:       constants.ConnectionTypeMySql,
		quoteStart:       "`",
		quoteEnd:         "`",
		bind:             bindQuestion,
		MaxBindVars:      65535,
		TablesWithSchema: `select table_name from information_schema.tables where table_schema = ? and table_type = 'BASE TABLE'`,
		TablesNoSchema:   `select table_name from information_schema.tables where table_schema = database() and table_type = 'BASE TABLE'`,
		dropTable:        "drop table if exists %v",
		viewStatements:   []string{"create or replace view %[1]v as %[2]v"},
		TransactionalDdl: false, // DDL commits implicitly
		DataTypes: map[stream.Kind]string{
			stream.KindBool:      "boolean",
			stream.KindInt64:     "bigint",
			stream.KindFloat64:   "double",
			stream.KindString:    "longtext",
			stream.KindBytes:     "longblob",
			stream.KindTimestamp: "datetime(6)",
		},
	},
	constants.ConnectionTypeSqlServer: {
		Name:             constants.ConnectionTypeSqlServer,
		DriverName:       constants.ConnectionTypeSqlServer,
		quoteStart:       "[",
		quoteEnd:         "]",
		bind:             bindAtP,
		MaxBindVars:      2000, // hard limit is 2100
		TablesWithSchema: `select table_name from information_schema.tables where table_schema = @p1 and table_type = 'BASE TABLE'`,
		TablesNoSchema:   `select table_name from information_schema.tables where table_schema = schema_name() and table_type = 'BASE TABLE'`,
		dropTable:        "drop table if exists %v",
		viewStatements:   []string{"create or alter view %[1]v as %[2]v"},
		TransactionalDdl: true,
		DataTypes: map[stream.Kind]string{
			stream.KindBool:      "bit",
			stream.KindInt64:     "bigint",
			stream.KindFloat64:   "float",
			stream.KindString:    "nvarchar(max)",
			stream.KindBytes:     "varbinary(max)",
			stream.KindTimestamp: "datetime2",
		},
	},
	constants.ConnectionTypeSnowflake: {
		Name:             constants.ConnectionTypeSnowflake,
		DriverName:       constants.ConnectionTypeSnowflake,
		quoteStart:       `"`,
		quoteEnd:         `"`,
		bind:             bindQuestion,
		MaxBindVars:      16384,
		TablesWithSchema: `select table_name from information_schema.tables where table_schema = ? and table_type = 'BASE TABLE'`,
		TablesNoSchema:   `select table_name from information_schema.tables where table_schema = current_schema() and table_type = 'BASE TABLE'`,
		dropTable:        "drop table if exists %v",
		viewStatements:   []string{"create or replace view %[1]v as %[2]v"},
		TransactionalDdl: false, // DDL commits implicitly
		DataTypes: map[stream.Kind]string{
			stream.KindBool:      "boolean",
			stream.KindInt64:     "number(38,0)",
			stream.KindFloat64:   "float",
			stream.KindString:    "varchar",
			stream.KindBytes:     "binary",
			stream.KindTimestamp: "timestamp_ntz",
		},
	},
	constants.ConnectionTypeSqlite: {
		Name:             constants.ConnectionTypeSqlite,
		DriverName:       constants.DriverNameSqlite,
		quoteStart:       `"`,
		quoteEnd:         `"`,
		bind:             bindQuestion,
		MaxBindVars:      999,
		TablesWithSchema: "", // sqlite has no schemas
		TablesNoSchema:   `select name from sqlite_master where type = 'table' and name not like 'sqlite_%'`,
		dropTable:        "drop table if exists %v",
		viewStatements:   []string{"drop view if exists %[1]v", "create view %[1]v as %[2]v"},
		TransactionalDdl: true,
		DataTypes: map[stream.Kind]string{
			stream.KindBool:      "boolean",
			stream.KindInt64:     "integer",
			stream.KindFloat64:   "real",
			stream.KindString:    "text",
			stream.KindBytes:     "blob",
			stream.KindTimestamp: "timestamp",
		},
	},
}

// GetDialect returns the Dialect for the connection type.
func GetDialect(connectionType string) (*Dialect, error) {
	d, ok := dialects[connectionType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type, %q", connectionType)
	}
	return d, nil
}

// QuoteIdentifier quotes a table or column name, escaping embedded quote characters.
func (d *Dialect) QuoteIdentifier(s string) string {
	return d.quoteStart + strings.Replace(s, d.quoteEnd, d.quoteEnd+d.quoteEnd, -1) + d.quoteEnd
}

// QualifiedName returns the quoted [schema.]table.
func (d *Dialect) QualifiedName(schema string, table string) string {
	if schema == "" || d.Name == constants.ConnectionTypeSqlite {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// Placeholder returns the n-th (1-based) bind variable.
func (d *Dialect) Placeholder(n int) string {
	switch d.bind {
	case bindDollar:
		return fmt.Sprintf("$%d", n)
	case bindAtP:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// DropTableSql returns DDL that drops the table if it exists.
func (d *Dialect) DropTableSql(schema string, table string) string {
	return fmt.Sprintf(d.dropTable, d.QualifiedName(schema, table))
}

// CreateTableSql returns DDL for a table holding the given columns.
func (d *Dialect) CreateTableSql(schema string, table string, cols []stream.Column) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("no columns supplied to create table %v", table)
	}
	fields := make([]string, 0, len(cols))
	for _, c := range cols {
		dt, ok := d.DataTypes[c.Kind]
		if !ok {
			return "", fmt.Errorf("unsupported column kind %v for %v", c.Kind, d.Name)
		}
		fields = append(fields, fmt.Sprintf("%v %v", d.QuoteIdentifier(c.Name), dt))
	}
	return fmt.Sprintf("create table %v (%v)", d.QualifiedName(schema, table), strings.Join(fields, ", ")), nil
}

// ReplaceViewSql returns the statements that create or replace a view.
func (d *Dialect) ReplaceViewSql(schema string, view string, selectSql string) []string {
	retval := make([]string, len(d.viewStatements))
	for i, s := range d.viewStatements {
		retval[i] = fmt.Sprintf(s, d.QualifiedName(schema, view), selectSql)
	}
	return retval
}

// TablesSql returns the catalog query and its args for the schema, or for the default schema when blank.
func (d *Dialect) TablesSql(schema string) (string, []interface{}) {
	if schema == "" || d.TablesWithSchema == "" {
		return d.TablesNoSchema, nil
	}
	return d.TablesWithSchema, []interface{}{schema}
}
