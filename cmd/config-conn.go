package cmd

import (
	"os"

	"github.com/relloyd/batchetl/actions"
	"github.com/spf13/cobra"
)

var connCfg = actions.ConnectionConfig{}

var configConnCmd = &cobra.Command{
	Use:     "conn",
	Aliases: []string{"connections"},
	Short:   "Configure named database connections",
	Long: `Save database URLs under a name so that --postgres-conn and --target-conn
can refer to the name instead of a URL containing a password.`,
}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		connCfg.ConfigFile = configFile
		return actions.RunConnectionAdd(&connCfg, os.Stdout)
	},
}

var configConnListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunConnectionList(configFile, os.Stdout)
	},
}

var configConnRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a connection",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		connCfg.ConfigFile = configFile
		return actions.RunConnectionRemove(&connCfg, os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(configConnCmd)
	configConnCmd.AddCommand(configConnAddCmd, configConnListCmd, configConnRemoveCmd)
	switches.addFlag(configConnAddCmd, &connCfg.LogicalName, "connection-name", "", "")
	switches.addFlag(configConnAddCmd, &connCfg.Dsn, "dsn", "", "")
	switches.addFlag(configConnAddCmd, &connCfg.Force, "force-connection", "false", "")
	switches.addFlag(configConnRemoveCmd, &connCfg.LogicalName, "connection-name", "", "")
}
