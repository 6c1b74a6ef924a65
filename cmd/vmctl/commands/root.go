package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/config"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/history"
	"codeberg.org/mutker/vmctl/internal/logger"
	"codeberg.org/mutker/vmctl/internal/pid"
	"codeberg.org/mutker/vmctl/internal/tui"
)

var (
	flagConfig  string
	flagDebug   bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vmctl",
	Short: "Interactive dashboard for VMware Workstation virtual machines",
	Long: `vmctl observes and controls virtual machines through the VMware
Workstation REST API. Without a subcommand it starts the interactive
dashboard; list and power offer one-shot access for scripting.`,
	RunE:         runDashboard,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
}

// loadConfig loads the configuration with flag overrides applied.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		os.Setenv("VMCTL_CONFIG", flagConfig)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flagDebug {
		cfg.LogLevel = "debug"
	} else if flagVerbose {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so logs go to a file.
	logSink, err := logger.InitFile(cfg.LogFile, cfg.Debug(), cfg.Verbose())
	if err != nil {
		return err
	}
	defer logSink.Close()

	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	gateway, err := api.NewClient(cfg.APIURL, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}

	recorder, err := history.NewService(history.Config{
		Enabled: cfg.History,
		DBPath:  cfg.Database,
	})
	if err != nil {
		return err
	}
	defer recorder.Close()

	engine := core.NewEngine(gateway, recorder, core.Options{
		PollInterval:   cfg.PollInterval(),
		CommandTimeout: cfg.Timeout(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	logger.Info().Str("api_url", cfg.APIURL).Msg("Dashboard starting")

	program := tea.NewProgram(tui.New(engine), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !stderrors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("dashboard terminated with error")
		return err
	}

	logger.Info().Msg("Exiting...")

	return nil
}
