package rdbms

import (
	"context"
	"fmt"
	"sort"

	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
)

type tableNames struct {
	names []string
}

func (t *tableNames) HandleHeader(cols []*shared.DbColumnType) error {
	if len(cols) != 1 {
		return fmt.Errorf("expected 1 column listing tables; got %v", len(cols))
	}
	return nil
}

func (t *tableNames) HandleRow(row []interface{}) error {
	t.names = append(t.names, stream.ToString(row[0]))
	return nil
}

// ListTables returns the sorted names of the base tables in schema.
// A blank schema lists the connection's default schema.
func ListTables(ctx context.Context, log logger.Logger, db shared.Connector, schema string) ([]string, error) {
	q, args := db.GetDialect().TablesSql(schema)
	t := &tableNames{}
	if err := SqlQuery(ctx, log, db, q, t, args...); err != nil {
		return nil, err
	}
	sort.Strings(t.names)
	log.Debug("found tables in schema ", schema, ": ", t.names)
	return t.names, nil
}
