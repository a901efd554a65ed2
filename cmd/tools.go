package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/tools"
)

var base64Cmd = &cobra.Command{
	Use:   "base64",
	Short: "Encode or decode Base64 text",
}

var base64EncodeCmd = &cobra.Command{
	Use:   "encode [text...]",
	Short: "Encode text (stdin when no arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return emit(cmd, tools.EncodeBase64(text))
	},
}

var base64DecodeCmd = &cobra.Command{
	Use:   "decode [text...]",
	Short: "Decode standard or URL-safe Base64 (stdin when no arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		out, err := tools.DecodeBase64(text)
		if err != nil {
			return err
		}
		return emit(cmd, out)
	},
}

var uuidCmd = &cobra.Command{
	Use:   "uuid",
	Short: "Generate random UUIDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")
		if n < 1 {
			return errors.New("count must be at least 1")
		}
		// only the last one is copied
		for i := 0; i < n-1; i++ {
			fmt.Fprintln(cmd.OutOrStdout(), tools.NewUUID())
		}
		return emit(cmd, tools.NewUUID())
	},
}

// copyTo is swapped in tests.
var copyTo = func(text string) error {
	if !clipboard.Available() {
		return errors.New("no clipboard available")
	}
	return clipboard.NewSystem(0).Write(text, clipboard.OwnLabel)
}

// emit prints out and copies it when --copy is set.
func emit(cmd *cobra.Command, out string) error {
	fmt.Fprintln(cmd.OutOrStdout(), out)
	if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
		if err := copyTo(out); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{base64EncodeCmd, base64DecodeCmd, uuidCmd} {
		c.Flags().Bool("copy", false, "Copy the result to the clipboard")
	}
	uuidCmd.Flags().IntP("count", "n", 1, "Number of UUIDs to generate")
	base64Cmd.AddCommand(base64EncodeCmd, base64DecodeCmd)
	rootCmd.AddCommand(base64Cmd, uuidCmd)
}
