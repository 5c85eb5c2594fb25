package rdbms

import (
	"context"
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/logger"
	"github.com/relloyd/batchetl/rdbms/shared"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// OpenDbConnection opens and pings the database described by the DSN in d.
func OpenDbConnection(ctx context.Context, log logger.Logger, d shared.DsnConnectionDetails) (shared.Connector, error) {
	p, err := d.Parse()
	if err != nil {
		return nil, err
	}
	if p.Type == constants.ConnectionTypeSnowflake {
		if err = validateSnowflakeDsn(p.DriverDsn); err != nil {
			return nil, err
		}
	}
	log.Debug("opening database connection: ", p.Redacted) // don't log password details
	conn := &shared.DbConnection{
		Dialect: p.Dialect,
		DbType:  p.Type,
	}
	conn.DbSql, err = sql.Open(p.DriverName, p.DriverDsn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %v", p.Redacted)
	}
	if p.Type == constants.ConnectionTypeSqlite {
		conn.DbSql.SetMaxOpenConns(1) // one writer at a time
	}
	// Test the connection.
	if err = conn.DbSql.PingContext(ctx); err != nil {
		_ = conn.DbSql.Close()
		return nil, errors.Wrapf(err, "error connecting to %v", p.Redacted)
	}
	log.Info("Successful connection to: ", p.Redacted)
	return conn, nil
}
