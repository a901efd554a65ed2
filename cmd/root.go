package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/feedback"
	"github.com/purelink/purelink/internal/history"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/tui"
	"github.com/purelink/purelink/internal/utils"
	"github.com/purelink/purelink/internal/version"
	"github.com/purelink/purelink/internal/watch"
)

// GlobalService is the in-process service of a running instance.
var GlobalService *core.LocalService

var verbosity int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "purelink",
	Short: "Strip tracking parameters from links you copy",
	Long: `PureLink watches the clipboard and removes tracking parameters
(utm_*, fbclid, gclid, ...) from every link you copy. It can also follow one
redirect hop to reveal where short links point.`,
	Version:       version.Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		initializeGlobalState()

		isMaster, err := AcquireLock()
		if err != nil {
			return fmt.Errorf("error acquiring lock: %w", err)
		}
		if !isMaster {
			return errors.New("purelink is already running; use 'purelink connect' to open its dashboard")
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		headless, _ := cmd.Flags().GetBool("headless")
		portFlag, _ := cmd.Flags().GetInt("port")
		noRefresh, _ := cmd.Flags().GetBool("no-refresh")
		if !headless && !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			headless = true
		}
		if headless {
			utils.ConfigureConsole(os.Stderr)
		}

		settings := loadSettings()
		log := utils.Logger("main")

		store := rules.NewStore()
		fetcher := rules.NewFetcher(settings.Rules.SourceURL, config.GetRulesPath(), settings.Rules.FetchTimeout, store)
		if fetcher.LoadSaved() {
			log.Info().Int("count", store.Current().Rules.Len()).Msg("loaded saved rules")
		}

		processor := newProcessor(store, settings)

		var clip *clipboard.System
		if clipboard.Available() {
			clip = clipboard.NewSystem(settings.Watch.PollInterval)
		} else {
			log.Warn().Msg("no clipboard backend found; only the API and CLI will clean links")
		}

		var notifier feedback.Notifier
		if !headless || isatty.IsTerminal(os.Stderr.Fd()) {
			notifier = feedback.NewTerminal(os.Stderr)
		}

		var svc *core.LocalService
		if clip != nil {
			svc = core.NewLocalService(store, fetcher, processor, clip, notifier)
		} else {
			svc = core.NewLocalService(store, fetcher, processor, nil, notifier)
		}
		GlobalService = svc
		defer func() { _ = svc.Shutdown() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		refresher := &rules.Refresher{
			Updater:  fetcher,
			Interval: settings.Rules.RefreshInterval,
			Retry:    settings.Rules.RetryInterval,
			OnResult: svc.ReportRules,
		}
		go refresher.Run(ctx, !noRefresh)

		port, listener, err := listen(portFlag, settings.Server.Port)
		if err != nil {
			return err
		}
		saveActivePort(port)
		defer removeActivePort()
		go startHTTPServer(ctx, listener, port, svc)

		if clip != nil {
			w := watch.New(watch.Config{
				QuietWindow: settings.Watch.QuietWindow,
				Unshorten:   unshortenEnabled,
			}, watch.Deps{
				Clipboard: clip,
				Processor: processor,
				Toggle:    config.Toggle{},
				Notifier:  svc,
				Recorder:  svc,
			})
			go func() {
				if err := w.Run(ctx); err != nil {
					log.Error().Err(err).Msg("watcher stopped")
				}
			}()
		}

		if headless {
			fmt.Fprintf(os.Stderr, "PureLink %s watching the clipboard (API on 127.0.0.1:%d)\n", version.Version, port)
			StartHeadlessConsumer(ctx, svc)
			<-ctx.Done()
			return nil
		}

		return startTUI(ctx, port, svc)
	},
}

// startTUI runs the dashboard until the user quits or ctx is done.
func startTUI(ctx context.Context, port int, service core.Service) error {
	m := tui.InitialRootModel(port, version.Version, service)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	stream, cleanup, err := service.StreamEvents(ctx)
	if err != nil {
		return fmt.Errorf("error getting event stream: %w", err)
	}
	defer cleanup()

	go func() {
		for msg := range stream {
			p.Send(msg)
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// StartHeadlessConsumer prints service events to stdout until ctx is done.
func StartHeadlessConsumer(ctx context.Context, service core.Service) {
	go func() {
		stream, cleanup, err := service.StreamEvents(ctx)
		if err != nil {
			utils.Debug("Failed to start event stream: %v", err)
			return
		}
		defer cleanup()

		for msg := range stream {
			if line := formatEvent(msg); line != "" {
				fmt.Println(line)
			}
		}
	}()
}

func formatEvent(msg interface{}) string {
	switch m := msg.(type) {
	case events.CleanedMsg:
		return fmt.Sprintf("Cleaned [%s]: %s", m.Origin, m.Cleaned)
	case events.ToggledMsg:
		if m.Enabled {
			return "Monitoring: on"
		}
		return "Monitoring: off"
	case events.RulesUpdatedMsg:
		if m.Err != "" {
			return "Rules update failed: " + m.Err
		}
		return fmt.Sprintf("Rules: %d (%s)", m.Count, m.Source)
	case events.HistoryClearedMsg:
		return "History cleared"
	}
	return ""
}

func newProcessor(store *rules.Store, settings *config.Settings) *cleaner.Processor {
	resolver := cleaner.NewResolver(settings.Resolver.Timeout, settings.Resolver.UserAgent)
	processor := cleaner.NewProcessor(store, resolver)
	processor.MaxParallel = settings.Resolver.MaxParallel
	return processor
}

// unshortenEnabled is read on every watch pass so toggling takes effect
// without a restart.
func unshortenEnabled() bool {
	return loadSettings().General.Unshorten
}

func loadSettings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		utils.Debug("Failed to load settings: %v", err)
		return config.DefaultSettings()
	}
	return settings
}

// listen binds the API listener. An explicit port must be free; otherwise
// the first free port from config.DefaultPort is used.
func listen(portFlag, configured int) (int, net.Listener, error) {
	port := portFlag
	if port == 0 {
		port = configured
	}
	if port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return 0, nil, fmt.Errorf("could not bind to port %d: %w", port, err)
		}
		return port, ln, nil
	}
	port, ln := findAvailablePort(config.DefaultPort)
	if ln == nil {
		return 0, nil, errors.New("could not find available port")
	}
	return port, ln, nil
}

// findAvailablePort tries ports starting from 'start' until one is available
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	rootCmd.Flags().IntP("port", "p", 0, "API port (default: first free port from 1750)")
	rootCmd.Flags().Bool("headless", false, "Run without the dashboard and print events to stdout")
	rootCmd.Flags().Bool("no-refresh", false, "Do not fetch remote rules at startup")
	rootCmd.SetVersionTemplate("PureLink version {{.Version}}\n")
}

// initializeGlobalState sets up directories, the history database and logging
func initializeGlobalState() {
	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	history.Configure(config.GetHistoryDBPath())

	utils.ConfigureDebug(config.GetLogsDir(), verbosity)
	utils.CleanupLogs(loadSettings().General.LogRetentionCount)
}
