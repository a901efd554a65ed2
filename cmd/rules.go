package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show or manage the tracking parameter rules",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := openService()
		defer func() { _ = service.Shutdown() }()

		st, err := service.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printRulesInfo(out, st.Rules)

		// names come from the saved copy every instance loads at startup
		store := rules.NewStore()
		settings := loadSettings()
		rules.NewFetcher(settings.Rules.SourceURL, config.GetRulesPath(), settings.Rules.FetchTimeout, store).LoadSaved()
		fmt.Fprintln(out, strings.Join(store.Current().Rules.Names(), "\n"))
		return nil
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch the latest rules now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := openService()
		defer func() { _ = service.Shutdown() }()

		info, err := service.UpdateRules(cmd.Context())
		if err != nil {
			return fmt.Errorf("rules update failed, active rules kept: %w", err)
		}
		printRulesInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the rules with a local JSON or YAML file",
	Long: `Import reads a file holding {"blocklist": [...]} (JSON) or a YAML
document with a blocklist key, and makes it the active rule set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := rules.ParseFile(args[0])
		if err != nil {
			return fmt.Errorf("invalid rules file %s: %w", args[0], err)
		}

		service := openService()
		defer func() { _ = service.Shutdown() }()

		info, err := service.ImportRules(cmd.Context(), names)
		if err != nil {
			return err
		}
		printRulesInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

var rulesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := openService()
		defer func() { _ = service.Shutdown() }()

		info, err := service.ResetRules(cmd.Context())
		if err != nil {
			return err
		}
		printRulesInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

func printRulesInfo(w io.Writer, info core.RulesInfo) {
	fmt.Fprintf(w, "Rules: %d (%s)", info.Count, info.Source)
	if !info.LoadedAt.IsZero() {
		fmt.Fprintf(w, ", loaded %s", info.LoadedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)
}

func init() {
	rulesCmd.AddCommand(rulesShowCmd, rulesUpdateCmd, rulesImportCmd, rulesResetCmd)
	rootCmd.AddCommand(rulesCmd)
}
