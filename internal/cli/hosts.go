package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/knock/internal/sshconfig"
	"github.com/rileyhilliard/knock/internal/ui"
)

var hostsJSON bool

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts from your SSH config",
	Long: `List the concrete host entries in ~/.ssh/config.

Any alias shown here can be probed directly:
  knock probe <alias>

Examples:
  knock hosts
  knock hosts --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostsCommand()
	},
}

func init() {
	hostsCmd.Flags().BoolVar(&hostsJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(hostsCmd)
}

func hostsCommand() error {
	entries, err := sshconfig.List()
	if err != nil {
		return err
	}

	if hostsJSON {
		return WriteJSONSuccess(os.Stdout, entries)
	}

	rows := make([]ui.HostTableRow, len(entries))
	for i, e := range entries {
		rows[i] = ui.HostTableRow{
			Alias:    e.Alias,
			HostName: e.Hostname,
			User:     e.User,
			Port:     e.Port,
		}
	}

	fmt.Println(ui.RenderHostsTable(rows))
	return nil
}
