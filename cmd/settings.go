package cmd

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/config"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			return err
		}
		return printSettings(cmd.OutOrStdout(), settings)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <category.key> <value>",
	Short: "Change one setting, e.g. 'settings set general.unshorten true'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Set(args[0], args[1])
		if err != nil {
			return err
		}
		category, key, _ := strings.Cut(strings.ToLower(args[0]), ".")
		value, _ := settingValue(settings, category, key)
		fmt.Fprintf(cmd.OutOrStdout(), "%s.%s = %s\n", category, key, value)
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetSettingsPath())
	},
}

func printSettings(w io.Writer, settings *config.Settings) error {
	meta := config.GetSettingsMetadata()
	for i, category := range config.CategoryOrder() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render(category))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, m := range meta[category] {
			value, ok := settingValue(settings, strings.ToLower(category), m.Key)
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "  %s.%s\t%s\t%s\n", strings.ToLower(category), m.Key, value, m.Label)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// settingValue renders the field tagged key of the category struct.
func settingValue(settings *config.Settings, category, key string) (string, bool) {
	section, ok := fieldByTag(reflect.ValueOf(settings).Elem(), category)
	if !ok {
		return "", false
	}
	field, ok := fieldByTag(section, key)
	if !ok {
		return "", false
	}
	if d, ok := field.Interface().(time.Duration); ok {
		return d.String(), true
	}
	if s, ok := field.Interface().(string); ok && s == "" {
		return `""`, true
	}
	return fmt.Sprint(field.Interface()), true
}

func fieldByTag(v reflect.Value, tag string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == tag {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd, settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}
