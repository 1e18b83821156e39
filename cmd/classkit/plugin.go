// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pluginCmd groups plugin management commands.
var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "inspect active plugins",
}

// pluginListCmd shows the resolved plugin units in load order.
var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "list active plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		if activeApp == nil {
			return fmt.Errorf("application not assembled")
		}
		for _, unit := range activeApp.units {
			fmt.Printf("%2d  %s  %s\n",
				unit.Ordinal,
				CmdStyle.Render(unit.Plugin.Name()),
				SubtitleStyle.Render(unit.String()))
		}
		return nil
	},
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
}
