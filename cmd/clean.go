package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/core"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [text...]",
	Short: "Strip tracking parameters from text (stdin when no arguments)",
	Long: `Clean removes tracking parameters from every link in the given text and
prints the result. It uses the running instance when there is one, so the
clean shows up in its history and dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		req := core.CleanRequest{Text: text, Origin: core.OriginManual}
		req.Copy, _ = cmd.Flags().GetBool("copy")
		if cmd.Flags().Changed("unshorten") {
			unshorten, _ := cmd.Flags().GetBool("unshorten")
			req.Unshorten = &unshorten
		}

		service := openService()
		defer func() { _ = service.Shutdown() }()

		result, err := service.Clean(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Fprintln(out, result.Text)
		if result.Copied {
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().Bool("unshorten", false, "Follow one redirect hop (default from settings)")
	cleanCmd.Flags().Bool("copy", false, "Copy the result to the clipboard")
	cleanCmd.Flags().Bool("json", false, "Print the result and every change as JSON")
	rootCmd.AddCommand(cleanCmd)
}
