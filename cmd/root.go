// Package cmd implements the atlas CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var (
	flagConfig  string
	flagDataDir string
	flagDemo    bool
	flagQuiet   bool
	flagVerbose bool
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Property portfolio and treasury dashboard",
	Long: "Track rental properties, accounts, loans and invoices. " +
		"A rules engine classifies invoices, links bank movements, forecasts cash flow and raises alerts.",
	SilenceUsage: true,
	RunE:         runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/atlas/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Directory holding the state database")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use in-memory demo data; nothing is saved")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables where supported")

	cobra.OnInitialize(func() {
		if flagConfig != "" {
			_ = os.Setenv("ATLAS_CONFIG", flagConfig)
		}
	})
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	return cfg, nil
}

// openRuntime is the shared loading path used by all commands.
func openRuntime() (*pipeline.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger()
	slog.SetDefault(log)

	rt, err := pipeline.Open(cfg, pipeline.Options{Logger: log, InMemory: flagDemo})
	if err != nil {
		return nil, err
	}
	if !flagQuiet && flagDemo {
		fmt.Fprintln(os.Stderr, "  Demo mode: changes are not saved")
	}
	return rt, nil
}

// withRuntime opens the runtime for the duration of fn.
func withRuntime(fn func(rt *pipeline.Runtime) error) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}

// dispatch runs an action and prints the toasts it emits. Modal requests
// become a hint, since the CLI cannot open dialogs.
func dispatch(rt *pipeline.Runtime, id string, params actions.Params) error {
	ch, unsubscribe := rt.Bus.Subscribe(32)
	defer unsubscribe()

	err := rt.Actions.Dispatch(id, params)

	for {
		select {
		case ev := <-ch:
			printEvent(ev)
		case <-time.After(10 * time.Millisecond):
			return err
		}
	}
}

func printEvent(ev events.Event) {
	switch {
	case ev.Toast != nil:
		msg := ev.Toast.Message
		switch ev.Toast.Level {
		case events.LevelError:
			// reported through the returned error
		case events.LevelWarning:
			fmt.Fprintf(os.Stderr, "  ! %s\n", msg)
		default:
			fmt.Printf("  ✓ %s\n", msg)
		}
	case ev.Modal != nil:
		fmt.Printf("  This action needs more input (%s). Pass the missing flags.\n", ev.Modal.Name)
	}
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
