package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently cleaned links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := openService()
		defer func() { _ = service.Shutdown() }()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
			if err := service.ClearHistory(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared.")
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		items, err := service.History(ctx, limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if len(items) == 0 {
			fmt.Fprintln(out, "No history yet.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTEXT")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\n", item.Time.Local().Format("2006-01-02 15:04"), item.Text)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 0, "Number of entries to show (0 for all)")
	historyCmd.Flags().Bool("clear", false, "Delete all history entries")
	historyCmd.Flags().Bool("json", false, "Print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}
