package rdbms

import (
	"github.com/pkg/errors"
	sf "github.com/snowflakedb/gosnowflake"
)

// validateSnowflakeDsn parses the native Snowflake DSN, without the snowflake:// prefix,
// so that bad settings are reported before we try to connect.
func validateSnowflakeDsn(dsn string) error {
	cfg, err := sf.ParseDSN(dsn)
	if err != nil {
		return errors.Wrap(err, "unsupported Snowflake DSN format")
	}
	if cfg.Account == "" {
		return errors.New("snowflake DSN is missing the account")
	}
	return nil
}
