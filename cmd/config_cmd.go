package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", config.DataDir(cfg))
	fmt.Printf("    Database:       %s\n", config.DBPath(cfg))
	fmt.Printf("    Currency:       %s\n", cfg.General.Currency)
	fmt.Println()

	fmt.Println("  [Rules]")
	if cfg.Rules.MovementMatchingDays > 0 {
		fmt.Printf("    Matching window:   ±%d days\n", cfg.Rules.MovementMatchingDays)
	} else {
		fmt.Println("    Matching window:   from settings")
	}
	fmt.Printf("    Forecast horizon:  %d days\n", cfg.Rules.PredictionHorizonDays)
	fmt.Printf("    Revision notice:   %d days\n", cfg.Rules.RevisionAlertDays)
	fmt.Printf("    Dedupe alerts:     %v\n", cfg.Rules.DedupeAlerts)
	if d := cfg.Rules.Delay(); d > 0 {
		fmt.Printf("    Startup run after: %s\n", d)
	} else {
		fmt.Println("    Startup run:       disabled")
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Printf("    Inbox:         %s\n", config.InboxDir(cfg))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)

	if len(cfg.Categories.Overrides) > 0 {
		fmt.Println()
		fmt.Println("  [Categories]")
		names := make([]string, 0, len(cfg.Categories.Overrides))
		for name := range cfg.Categories.Overrides {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ov := cfg.Categories.Overrides[name]
			line := "    " + name + ":"
			if ov.Treatment != nil {
				line += fmt.Sprintf(" treatment=%s", *ov.Treatment)
			}
			if ov.Deductible != nil {
				line += fmt.Sprintf(" deductible=%v", *ov.Deductible)
			}
			if ov.AmortizationYears != nil {
				line += fmt.Sprintf(" years=%d", *ov.AmortizationYears)
			}
			fmt.Println(line)
		}
	}
	fmt.Println()

	fmt.Println("  Run `atlas setup` to reconfigure.")
	return nil
}
