package shared

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/constants"
	"github.com/xo/dburl"
)

var DefaultDsnConnectionKeyNames = struct {
	Dsn string
}{
	Dsn: "dsn",
}

// driverTypes maps the driver names returned by dburl to our connection types.
var driverTypes = map[string]string{
	"postgres":  constants.ConnectionTypePostgres,
	"pgx":       constants.ConnectionTypePostgres,
	"mysql":     constants.ConnectionTypeMySql,
	"sqlserver": constants.ConnectionTypeSqlServer,
	"mssql":     constants.ConnectionTypeSqlServer,
	"snowflake": constants.ConnectionTypeSnowflake,
	"sqlite3":   constants.ConnectionTypeSqlite,
	"sqlite":    constants.ConnectionTypeSqlite,
}

// DsnConnectionDetails is a simple struct to hold a DSN only.
type DsnConnectionDetails struct {
	Dsn string `errorTxt:"data source name i.e. connect string" mandatory:"yes"`
}

// ParsedDsn is the result of parsing a DSN into something database/sql can open.
type ParsedDsn struct {
	Type       string // connection type e.g. postgres
	DriverName string // database/sql driver name
	DriverDsn  string // driver-specific connect string
	Redacted   string // safe to log
	Dialect    *Dialect
}

// String returns the DSN with redacted password.
func (d DsnConnectionDetails) String() string {
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return "<unparseable DSN>"
	}
	return u.Redacted()
}

// Parse converts the DSN into driver details for one of the supported database types.
func (d DsnConnectionDetails) Parse() (*ParsedDsn, error) {
	if d.Dsn == "" { // if the Dsn is invalid...
		return nil, errors.New("DSN not found")
	}
	u, err := dburl.Parse(d.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "DSN could not be parsed")
	}
	t, ok := driverTypes[u.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database type, %q", u.OriginalScheme)
	}
	dialect, err := GetDialect(t)
	if err != nil {
		return nil, err
	}
	p := &ParsedDsn{
		Type:       t,
		DriverName: dialect.DriverName,
		DriverDsn:  u.DSN,
		Redacted:   u.Redacted(),
		Dialect:    dialect,
	}
	if t == constants.ConnectionTypeSnowflake {
		// gosnowflake wants its own format without the scheme.
		p.DriverDsn = strings.TrimPrefix(d.Dsn, "snowflake://")
	}
	return p, nil
}

func (d DsnConnectionDetails) GetMap(m map[string]string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[DefaultDsnConnectionKeyNames.Dsn] = d.Dsn
	return m
}

// GetDsnConnectionDetails converts generic ConnectionDetails to DsnConnectionDetails
// and returns a pointer to the new struct.
func GetDsnConnectionDetails(c *ConnectionDetails) *DsnConnectionDetails {
	return &DsnConnectionDetails{
		Dsn: c.Data[DefaultDsnConnectionKeyNames.Dsn],
	}
}
