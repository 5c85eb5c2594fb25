package actions

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/rdbms/shared"
)

type ConnectionConfig struct {
	ConfigFile  ConnectionStore
	LogicalName string `errorTxt:"connection name" mandatory:"yes"`
	Dsn         string
	Force       bool
}

// RunConnectionAdd validates the DSN and saves it under the logical name.
func RunConnectionAdd(cfg *ConnectionConfig, w io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if strings.Contains(cfg.LogicalName, ":") {
		return fmt.Errorf("connection name cannot contain ':' as names are told apart from URLs by it")
	}
	connection, err := shared.NewDsnConnectionDetails(cfg.LogicalName, cfg.Dsn)
	if err != nil {
		return errors.Wrap(err, "unable to create connection")
	}
	// Check for an existing saved connection.
	if _, err = cfg.ConfigFile.GetConnectionDetails(cfg.LogicalName); err == nil && !cfg.Force {
		return fmt.Errorf("connection exists, use force to update the connection or remove it first")
	}
	if err = cfg.ConfigFile.SetConnectionDetails(*connection); err != nil {
		return fmt.Errorf("error writing config file after adding connection: %v", err)
	}
	_, _ = fmt.Fprintf(w, "Connection %q added\n", cfg.LogicalName)
	return nil
}

func RunConnectionRemove(cfg *ConnectionConfig, w io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if err := cfg.ConfigFile.DeleteConnection(cfg.LogicalName); err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %v", cfg.LogicalName, err)
	}
	_, _ = fmt.Fprintf(w, "Connection %q removed\n", cfg.LogicalName)
	return nil
}

// RunConnectionList prints every connection, sorted by name, with passwords redacted.
func RunConnectionList(store ConnectionStore, w io.Writer) error {
	conns, err := store.ListConnections()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(conns))
	for k := range conns {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names { // for each connection...
		_, _ = fmt.Fprintf(w, "%v:\n%v\n", k, conns[k])
	}
	return nil
}
