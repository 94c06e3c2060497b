package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// ProgressBar renders a block progress bar followed by its percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = clamp01(pct)
	filled := min(int(pct*float64(width)), width)

	var barColor lipgloss.Color
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	default:
		barColor = t.Cyan
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// ColorForCoverage returns red/orange/yellow/green for how much of its
// target an account balance covers. Below one half is critical.
func ColorForCoverage(ratio float64) lipgloss.Color {
	t := theme.Active
	switch {
	case ratio < 0.5:
		return t.Red
	case ratio < 0.75:
		return t.Orange
	case ratio < 1:
		return t.Yellow
	default:
		return t.Green
	}
}

// CoverageBar renders an account's balance/target ratio as a labelled bar.
func CoverageBar(label string, balance, target float64, labelW, barWidth int) string {
	t := theme.Active

	ratio := 1.0
	if target > 0 {
		ratio = balance / target
	}
	color := ColorForCoverage(ratio)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(label, labelW))) +
		spaceStyle.Render(" ") +
		bar.ViewAs(clamp01(ratio)) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%4.0f%%", ratio*100))
}

// FormatCountdown renders the time until t in days, e.g. "19d" or "hoy".
func FormatCountdown(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	days := int(t.Sub(now).Hours() / 24)
	switch {
	case days < 0:
		return "vencido"
	case days == 0:
		return "hoy"
	case days < 60:
		return fmt.Sprintf("%dd", days)
	default:
		return fmt.Sprintf("%dm", days/30)
	}
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
