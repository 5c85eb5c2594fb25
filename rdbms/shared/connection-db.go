package shared

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
)

// DbConnection is a wrapper around Go native sql.DB.
// It adds the Dialect used to generate SQL for the database type.
type DbConnection struct {
	DbSql   *sql.DB
	Dialect *Dialect
	DbType  string
}

// Connector:

func (c *DbConnection) BeginTx(ctx context.Context) (Transacter, error) {
	if c.DbSql == nil {
		return nil, errors.New("DbConnection was not configured correctly: DbSql is missing")
	}
	tx, err := c.DbSql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &DbTx{txSql: tx}, nil
}

func (c *DbConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return c.DbSql.ExecContext(ctx, query, args...)
}

func (c *DbConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (*DbRows, error) {
	r, err := c.DbSql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &DbRows{rowsSql: r}, nil
}

func (c *DbConnection) PingContext(ctx context.Context) error {
	return c.DbSql.PingContext(ctx)
}

func (c *DbConnection) Close() error {
	if c.DbSql == nil {
		return nil
	}
	return c.DbSql.Close()
}

func (c *DbConnection) GetType() string {
	return c.DbType
}

func (c *DbConnection) GetDialect() *Dialect {
	return c.Dialect
}

// Transacter:

type DbTx struct {
	txSql *sql.Tx
}

func (t *DbTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return t.txSql.ExecContext(ctx, query, args...)
}

func (t *DbTx) Commit() error {
	return t.txSql.Commit()
}

func (t *DbTx) Rollback() error {
	return t.txSql.Rollback()
}

// Rows:

type DbRows struct {
	rowsSql *sql.Rows
}

func (r *DbRows) Close() error {
	return r.rowsSql.Close()
}

func (r *DbRows) Columns() ([]string, error) {
	return r.rowsSql.Columns()
}

func (r *DbRows) ColumnTypes() ([]*DbColumnType, error) {
	c, err := r.rowsSql.ColumnTypes()
	if err != nil {
		return nil, err
	}
	x := make([]*DbColumnType, len(c))
	for i, v := range c {
		x[i] = &DbColumnType{colTypeSql: v}
	}
	return x, nil
}

func (r *DbRows) Err() error {
	return r.rowsSql.Err()
}

func (r *DbRows) Next() bool {
	return r.rowsSql.Next()
}

func (r *DbRows) Scan(dest ...interface{}) error {
	return r.rowsSql.Scan(dest...)
}

// ColumnType:

type DbColumnType struct {
	colTypeSql *sql.ColumnType
}

func (c *DbColumnType) DatabaseTypeName() string {
	return c.colTypeSql.DatabaseTypeName()
}

func (c *DbColumnType) DecimalSize() (precision, scale int64, ok bool) {
	return c.colTypeSql.DecimalSize()
}

func (c *DbColumnType) Name() string {
	return c.colTypeSql.Name()
}

func (c *DbColumnType) Nullable() (nullable, ok bool) {
	return c.colTypeSql.Nullable()
}

func (c *DbColumnType) ScanType() reflect.Type {
	return c.colTypeSql.ScanType()
}
