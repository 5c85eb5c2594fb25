package config

import (
	"fmt"
	"strings"

	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/rdbms/shared"
)

// ConnectionsKey is the config file key holding named connections.
const ConnectionsKey = "connections"

// GetConnectionDetails fetches the connection called connectionName from the connections map in the file.
// If the connection is not found then an error is produced.
func (c *File) GetConnectionDetails(connectionName string) (*shared.ConnectionDetails, error) {
	conns := make(map[string]shared.ConnectionDetails)
	if err := c.Get(ConnectionsKey, &conns); err != nil {
		return nil, fmt.Errorf("connection %q is not configured: %v", connectionName, err)
	}
	d, ok := conns[connectionName]
	if !ok || d.Type == "" { // if the connection was not found...
		return nil, fmt.Errorf("connection %q is not configured in %v", connectionName, c.FullPath)
	}
	d.LogicalName = connectionName
	return &d, nil
}

// SetConnectionDetails saves a named connection.
func (c *File) SetConnectionDetails(d shared.ConnectionDetails) error {
	conns := make(map[string]shared.ConnectionDetails)
	if err := c.Get(ConnectionsKey, &conns); err != nil {
		if _, ok := err.(KeyNotFoundError); !ok {
			return err
		}
	}
	conns[d.LogicalName] = d
	return c.Set(ConnectionsKey, conns)
}

// ResolveDsn returns nameOrDsn when it looks like a connection string, else the DSN of the
// named connection in the file.
func (c *File) ResolveDsn(nameOrDsn string) (string, error) {
	if nameOrDsn == "" || strings.Contains(nameOrDsn, ":") { // if this is a URL, e.g. postgres:// or sqlite:...
		return nameOrDsn, nil
	}
	d, err := c.GetConnectionDetails(nameOrDsn)
	if err != nil {
		return "", err
	}
	if d.Type == constants.ConnectionTypeS3 {
		return "", fmt.Errorf("connection %q is an S3 bucket, not a database", nameOrDsn)
	}
	dsn := shared.GetDsnConnectionDetails(d).Dsn
	if dsn == "" {
		return "", fmt.Errorf("connection %q has no %q", nameOrDsn, shared.DefaultDsnConnectionKeyNames.Dsn)
	}
	return dsn, nil
}

// ListConnections returns all named connections.
func (c *File) ListConnections() (map[string]shared.ConnectionDetails, error) {
	conns := make(map[string]shared.ConnectionDetails)
	if err := c.Get(ConnectionsKey, &conns); err != nil {
		if _, ok := err.(KeyNotFoundError); ok {
			return conns, nil
		}
		return nil, err
	}
	for k, v := range conns {
		v.LogicalName = k
		conns[k] = v
	}
	return conns, nil
}

// DeleteConnection removes the named connection.
func (c *File) DeleteConnection(connectionName string) error {
	conns, err := c.ListConnections()
	if err != nil {
		return err
	}
	if _, ok := conns[connectionName]; !ok {
		return fmt.Errorf("connection %q not found", connectionName)
	}
	delete(conns, connectionName)
	return c.Set(ConnectionsKey, conns)
}
