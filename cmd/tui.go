package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/pipeline"
	"github.com/theirongolddev/atlas/internal/tui"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		theme.SetActive(rt.Config.Appearance.Theme)

		// Force TrueColor profile so all background styling produces ANSI codes
		// Without this, lipgloss may default to Ascii profile (no colors)
		lipgloss.SetColorProfile(termenv.TrueColor)

		app := tui.NewApp(rt, rt.Config)
		defer app.Close()

		p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}
