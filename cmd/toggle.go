package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:       "toggle [on|off]",
	Short:     "Turn clipboard monitoring on or off (flips it without an argument)",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		service := openService()
		defer func() { _ = service.Shutdown() }()

		ctx := cmd.Context()
		var enabled bool
		if len(args) == 1 {
			enabled = strings.EqualFold(args[0], "on")
		} else {
			st, err := service.Status(ctx)
			if err != nil {
				return err
			}
			enabled = !st.Monitoring
		}

		if err := service.SetMonitoring(ctx, enabled); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Monitoring: %s\n", onOff(enabled))
		return nil
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}
