package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/inbox"
	"github.com/theirongolddev/atlas/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := loadConfig()

	files, _ := inbox.ScanDir(config.InboxDir(cfg))
	if len(files) > 0 {
		fmt.Printf("\n  Found %s invoice files in %s\n", formatNumber(int64(len(files))), config.InboxDir(cfg))
	}

	values := tui.DefaultSetupValues(cfg)
	if err := tui.NewSetupForm(values).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	cfg = tui.ApplySetup(cfg, values)
	if err := os.MkdirAll(config.DataDir(cfg), 0o750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `atlas setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
