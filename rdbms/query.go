package rdbms

import (
	"context"
	"fmt"

	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
)

// SqlQuery executes sqltext and sends the column types and then each row to i.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, i shared.SqlResultHandler, args ...interface{}) error {
	rows, err := db.QueryContext(ctx, sqltext, args...)
	if err != nil {
		return fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	// Set up column types for Scan(...)
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("error fetching column types: %w", err)
	}
	for _, v := range colTypes {
		log.Trace("column ", v.Name(), " database type = ", v.DatabaseTypeName())
	}
	if err = i.HandleHeader(colTypes); err != nil {
		return err
	}
	// Scan the values dynamically.
	lenColTypes := len(colTypes)
	scanPtrs := make([]interface{}, lenColTypes)
	scanVals := make([]interface{}, lenColTypes)
	for idx := 0; idx < lenColTypes; idx++ { // for each column...
		scanPtrs[idx] = &scanVals[idx] // save the value.
	}
	// Send the rows via callback interface.
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to...
			return err
		}
		if err = rows.Scan(scanPtrs...); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		// Make a new row; drivers may reuse byte slices between rows.
		row := make([]interface{}, lenColTypes)
		for idx, v := range scanVals { // for each value...
			if b, ok := v.([]byte); ok {
				c := make([]byte, len(b))
				copy(c, b)
				v = c
			}
			row[idx] = v
		}
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// frameBuilder implements shared.SqlResultHandler and collects a whole result set.
type frameBuilder struct {
	names []string
	hints []stream.KindHint
	rows  [][]interface{}
}

func (f *frameBuilder) HandleHeader(cols []*shared.DbColumnType) error {
	f.names = make([]string, len(cols))
	f.hints = make([]stream.KindHint, len(cols))
	for idx, c := range cols {
		f.names[idx] = c.Name()
		_, scale, hasScale := c.DecimalSize()
		k, ok := stream.KindFromDatabaseType(c.DatabaseTypeName(), scale, hasScale)
		f.hints[idx] = stream.KindHint{Kind: k, Known: ok}
	}
	return nil
}

func (f *frameBuilder) HandleRow(row []interface{}) error {
	f.rows = append(f.rows, row)
	return nil
}

// QueryFrame runs sqltext and returns the complete result set as a Frame.
// Column kinds come from the driver's type names where known, else from the values.
func QueryFrame(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, args ...interface{}) (*stream.Frame, error) {
	b := &frameBuilder{}
	if err := SqlQuery(ctx, log, db, sqltext, b, args...); err != nil {
		return nil, err
	}
	return stream.NewFrame(b.names, b.hints, b.rows, stream.InferKind)
}
