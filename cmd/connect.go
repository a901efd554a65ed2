package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/core"
)

// TokenEnv supplies the API token for remote targets.
const TokenEnv = "PURELINK_TOKEN"

var connectCmd = &cobra.Command{
	Use:   "connect [host:port]",
	Short: "Open the dashboard of a running PureLink instance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) > 0 {
			target = args[0]
		} else {
			// Auto-discovery from local port file
			port := readActivePort()
			if port <= 0 {
				return errors.New("no running PureLink instance found locally; usage: purelink connect <host:port>")
			}
			target = fmt.Sprintf("127.0.0.1:%d", port)
		}

		tokenFlag, _ := cmd.Flags().GetString("token")
		token, err := resolveToken(target, tokenFlag)
		if err != nil {
			return err
		}

		baseURL := target
		if !strings.Contains(baseURL, "://") {
			baseURL = "http://" + baseURL
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s...\n", baseURL)

		service := core.NewRemoteService(baseURL, token)
		defer func() { _ = service.Shutdown() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Verify connection
		if _, err := service.Status(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		return startTUI(ctx, targetPort(target), service)
	},
}

// resolveToken picks the flag, then the environment, then the local token
// file. The local token is only offered to loopback targets.
func resolveToken(target, flag string) (string, error) {
	if token := strings.TrimSpace(flag); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(target, "http://"), "https://")
	if isLoopback(host) {
		return ensureAuthToken(), nil
	}
	return "", fmt.Errorf("no token provided; use --token or set %s", TokenEnv)
}

func targetPort(target string) int {
	target = strings.TrimPrefix(strings.TrimPrefix(target, "http://"), "https://")
	_, p, err := net.SplitHostPort(strings.TrimRight(target, "/"))
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}

func init() {
	connectCmd.Flags().String("token", "", "Bearer token for a remote instance (or set "+TokenEnv+")")
	rootCmd.AddCommand(connectCmd)
}
