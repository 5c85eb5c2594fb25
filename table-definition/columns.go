package tabledefinition

import (
	"context"
	"errors"
	"fmt"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
)

// ErrNoColumns is returned when a table has no columns, which usually means it does not exist.
var ErrNoColumns = errors.New("no column metadata found")

type mapTabDefinitionConfigT map[string]tabDefinitionConfigT

// tabDefinitionConfigT holds SQL used to fetch a table definition from a database.
// Every statement returns, in order: column_name, data_type, data_length, data_precision, data_scale,
// nullable (YES or NO) and column_id.
type tabDefinitionConfigT struct {
	withSchema    string // binds: schema, table
	withoutSchema string // binds: table
}

const infoSchemaColumns = `select column_name, data_type, coalesce(character_maximum_length, datetime_precision) as data_length,
							numeric_precision as data_precision, numeric_scale as data_scale, is_nullable as nullable,
							ordinal_position as column_id
							from information_schema.columns `

// tabDefinitionConfig is keyed by connection type.
var tabDefinitionConfig = mapTabDefinitionConfigT{
	constants.ConnectionTypePostgres: {
		withSchema:    infoSchemaColumns + `where table_schema = $1 and table_name = $2 order by ordinal_position`,
		withoutSchema: infoSchemaColumns + `where table_schema = current_schema() and table_name = $1 order by ordinal_position`,
	},
	constants.ConnectionTypeMySql: {
		withSchema:    infoSchemaColumns + `where table_schema = ? and table_name = ? order by ordinal_position`,
		withoutSchema: infoSchemaColumns + `where table_schema = database() and table_name = ? order by ordinal_position`,
	},
	constants.ConnectionTypeSqlServer: {
		withSchema:    infoSchemaColumns + `where table_schema = @p1 and table_name = @p2 order by ordinal_position`,
		withoutSchema: infoSchemaColumns + `where table_schema = schema_name() and table_name = @p1 order by ordinal_position`,
	},
	constants.ConnectionTypeSnowflake: {
		withSchema:    infoSchemaColumns + `where table_schema = ? and table_name = ? order by ordinal_position`,
		withoutSchema: infoSchemaColumns + `where table_schema = current_schema() and table_name = ? order by ordinal_position`,
	},
	constants.ConnectionTypeSqlite: {
		withoutSchema: `select name as column_name, type as data_type, null as data_length, null as data_precision,
							null as data_scale, case when "notnull" = 1 then 'NO' else 'YES' end as nullable, cid + 1 as column_id
							from pragma_table_info(?) order by cid`,
	},
}

func (t mapTabDefinitionConfigT) getRecord(databaseType string) (tabDefinitionConfigT, error) {
	k, ok := t[databaseType]
	if !ok { // if we do not support the database type...
		return tabDefinitionConfigT{}, fmt.Errorf("error fetching table definition config, unsupported database type: %q", databaseType)
	}
	return k, nil
}

// TableColumn defines a single table column.
type TableColumn struct {
	ColName       string
	DataType      string
	DataLen       int
	DataPrecision int
	DataScale     int
	HasScale      bool
	Nullable      bool
	ColID         int
}

// Kind returns the stream.Kind used to carry values of the column.
func (c TableColumn) Kind() stream.Kind {
	k, ok := stream.KindFromDatabaseType(c.DataType, int64(c.DataScale), c.HasScale)
	if !ok {
		return stream.KindString
	}
	return k
}

// TableColumns is a struct representing columns that you would find
// in one row of information_schema.columns or equivalent for the RDBMS type.
type TableColumns struct {
	Owner     string
	TableName string
	Columns   []TableColumn
}

// ColumnNames returns the column names in ordinal order.
func (t TableColumns) ColumnNames() []string {
	retval := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		retval[i] = c.ColName
	}
	return retval
}

// GetTableDefinition fetches the columns of schema.table; schema is optional, table is not.
// It is an error if the table has no columns, which usually means it does not exist.
func GetTableDefinition(ctx context.Context, log logger.Logger, db shared.Connector, schema string, table string) (tabCols TableColumns, err error) {
	if table == "" {
		return tabCols, fmt.Errorf("unexpected empty table name - unable to fetch table definition")
	}
	t, err := tabDefinitionConfig.getRecord(db.GetType())
	if err != nil {
		return tabCols, err
	}
	var sql string
	var args []interface{}
	if schema != "" && t.withSchema != "" { // if there is a schema prefix...
		sql = t.withSchema
		args = []interface{}{schema, table}
	} else { // else this is a table in the default schema...
		sql = t.withoutSchema
		args = []interface{}{table}
	}
	f, err := rdbms.QueryFrame(ctx, log, db, sql, args...)
	if err != nil {
		return tabCols, err
	}
	tabCols.Owner = schema
	tabCols.TableName = table
	for _, row := range f.Rows { // for each column definition found in the schema.table...
		colDef := TableColumn{
			ColName:  stream.ToString(row[0]),
			DataType: stream.ToString(row[1]),
			Nullable: row[5] == nil || stream.ToString(row[5]) != "NO", // prefer nullable over not null!
		}
		if colDef.DataLen, err = intOrZero(row[2]); err != nil {
			return tabCols, fmt.Errorf("unable to convert DATA_LENGTH to an integer: %w", err)
		}
		if colDef.DataPrecision, err = intOrZero(row[3]); err != nil {
			return tabCols, fmt.Errorf("unable to convert DATA_PRECISION to an integer: %w", err)
		}
		if row[4] != nil {
			colDef.HasScale = true
			if colDef.DataScale, err = intOrZero(row[4]); err != nil {
				return tabCols, fmt.Errorf("unable to convert DATA_SCALE to an integer: %w", err)
			}
		}
		if colDef.ColID, err = intOrZero(row[6]); err != nil {
			return tabCols, fmt.Errorf("unable to convert COLUMN_ID to an integer: %w", err)
		}
		log.Trace("column = ", colDef.ColName, "; type = ", colDef.DataType, "; nullable = ", colDef.Nullable)
		tabCols.Columns = append(tabCols.Columns, colDef)
	}
	if len(tabCols.Columns) == 0 {
		return tabCols, fmt.Errorf("%w for table %q", ErrNoColumns, rdbms.NewSchemaTable(schema, table))
	}
	return tabCols, nil
}

func intOrZero(v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	i, err := stream.Coerce(v, stream.KindInt64)
	if err != nil {
		return 0, err
	}
	return int(i.(int64)), nil
}
