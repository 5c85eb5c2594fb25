package actions

import (
	"github.com/relloyd/batchetl/rdbms/shared"
)

// ConnectionStore saves named connections, e.g. in the config file.
type ConnectionStore interface {
	GetConnectionDetails(connectionName string) (*shared.ConnectionDetails, error)
	SetConnectionDetails(d shared.ConnectionDetails) error
	DeleteConnection(connectionName string) error
	ListConnections() (map[string]shared.ConnectionDetails, error)
}
