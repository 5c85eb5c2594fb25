package rdbms

import (
	"context"

	om "github.com/cevaris/ordered_map"
	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms/shared"
	"github.com/relloyd/batchetl/stream"
)

// execer is satisfied by both shared.Connector and shared.Transacter.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (shared.Result, error)
}

// ReplaceTable drops schema.table, recreates it with the columns of f and inserts all rows of f.
// Where the database supports transactional DDL the whole replacement is one transaction, so a
// failure leaves the previous table in place. It returns the number of rows inserted.
func ReplaceTable(ctx context.Context, log logger.Logger, db shared.Connector, schema string, table string, f *stream.Frame, batchSize int) (rowCount int, err error) {
	d := db.GetDialect()
	createSql, err := d.CreateTableSql(schema, table, f.Columns)
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "error starting transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn("rollback of ", table, " failed: ", rbErr)
			}
		}
	}()
	var ddl execer = db // DDL commits implicitly on some databases.
	if d.TransactionalDdl {
		ddl = tx
	}
	for _, stmt := range []string{d.DropTableSql(schema, table), createSql} {
		log.Debug(stmt)
		if _, err = ddl.ExecContext(ctx, stmt); err != nil {
			return 0, errors.Wrapf(err, "error executing %q", stmt)
		}
	}
	if rowCount, err = insertFrame(ctx, log, tx, d, schema, table, f, batchSize); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "error committing %v", table)
	}
	return rowCount, nil
}

// insertFrame writes all rows of f using multi-row INSERT statements.
func insertFrame(ctx context.Context, log logger.Logger, tx execer, d *shared.Dialect, schema string, table string, f *stream.Frame, batchSize int) (int, error) {
	if f.NumRows() == 0 {
		return 0, nil
	}
	cols := om.NewOrderedMap()
	for _, c := range f.Columns {
		cols.Set(c.Name, c.Name)
	}
	gen, err := shared.NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:          log,
		Dialect:      d,
		OutputSchema: schema,
		OutputTable:  table,
		TargetCols:   cols,
	})
	if err != nil {
		return 0, err
	}
	batchSize = shared.MaxRowsPerBatch(d, len(f.Columns), batchSize)
	flush := func() error {
		if gen.GetRowsInBatch() == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, gen.GetStatement(), gen.GetValues()...); err != nil {
			return errors.Wrapf(err, "error inserting into %v", table)
		}
		gen.InitBatch(batchSize)
		return nil
	}
	gen.InitBatch(batchSize)
	for _, row := range f.Rows {
		full, err := gen.AddValuesToBatch(row)
		if err != nil {
			return 0, err
		}
		if full {
			if err = flush(); err != nil {
				return 0, err
			}
		}
	}
	if err = flush(); err != nil {
		return 0, err
	}
	log.Debug("inserted ", f.NumRows(), " rows into ", table)
	return f.NumRows(), nil
}

// ReplaceView creates or replaces schema.view as selectSql.
func ReplaceView(ctx context.Context, log logger.Logger, db shared.Connector, schema string, view string, selectSql string) (err error) {
	d := db.GetDialect()
	stmts := d.ReplaceViewSql(schema, view, selectSql)
	var ex execer = db
	var tx shared.Transacter
	if d.TransactionalDdl && len(stmts) > 1 {
		if tx, err = db.BeginTx(ctx); err != nil {
			return errors.Wrap(err, "error starting transaction")
		}
		ex = tx
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
	}
	for _, stmt := range stmts {
		log.Debug(stmt)
		if _, err = ex.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "error executing %q", stmt)
		}
	}
	if tx != nil {
		if err = tx.Commit(); err != nil {
			return errors.Wrapf(err, "error committing view %v", view)
		}
	}
	return nil
}
