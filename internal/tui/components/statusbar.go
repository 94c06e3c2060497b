package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// latest toast in the middle and the state revision on the right.
func RenderStatusBar(width int, toast *events.Toast, revision int64, lastUpdate time.Time, busy bool) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	left := barStyle.Render(" [?]ayuda  [r]eglas  [q]salir")

	middle := ""
	if toast != nil {
		color := t.Blue
		switch toast.Level {
		case events.LevelSuccess:
			color = t.Green
		case events.LevelWarning:
			color = t.Orange
		case events.LevelError:
			color = t.Red
		}
		middle = barStyle.Render("  ") +
			lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true).Render(toast.Message)
	}

	rightText := fmt.Sprintf("rev %d", revision)
	if !lastUpdate.IsZero() {
		rightText += " · " + lastUpdate.Format("15:04:05")
	}
	if busy {
		rightText = "ejecutando… " + rightText
	}
	right := barStyle.Render(rightText + " ")

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(middle)-lipgloss.Width(right), 0)
	bar := left + middle + barStyle.Render(fmt.Sprintf("%*s", padding, "")) + right

	return lipgloss.NewStyle().Background(t.Surface).MaxWidth(width).Render(bar)
}
