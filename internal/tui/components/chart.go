package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// Sparkline renders a unicode sparkline scaled between the series min and max.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3) // UTF-8 block chars are 3 bytes
	for _, v := range values {
		idx := len(blocks) - 1
		if span > 0 {
			idx = int((v - lo) / span * float64(len(blocks)-1))
		}
		buf.WriteRune(blocks[max(0, min(idx, len(blocks)-1))])
	}

	return style.Render(buf.String())
}

// FlowRow is one labelled in/out pair of a FlowChart.
type FlowRow struct {
	Label string
	In    float64
	Out   float64
}

// FlowChart renders paired horizontal bars (inflows green, outflows red)
// scaled to the largest value, one row per entry, followed by the net.
func FlowChart(rows []FlowRow, width int, format func(float64) string) string {
	if len(rows) == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	peak := 0.0
	for _, r := range rows {
		labelW = max(labelW, lipgloss.Width(r.Label))
		peak = max(peak, r.In, r.Out)
	}
	if peak == 0 {
		peak = 1
	}

	netW := 14
	barW := max(width-labelW-netW-3, 4)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	inStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	outStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for i, r := range rows {
		inLen := int(r.In / peak * float64(barW))
		outLen := int(r.Out / peak * float64(barW))
		net := r.In - r.Out
		netStyle := lipgloss.NewStyle().Foreground(t.ForAmount(net)).Background(t.Surface).Bold(true)

		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelW, r.Label)))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(inStyle.Render(strings.Repeat("█", inLen)))
		b.WriteString(spaceStyle.Render(strings.Repeat(" ", barW-inLen)))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(netStyle.Render(fmt.Sprintf("%*s", netW, format(net))))
		b.WriteString("\n")

		b.WriteString(spaceStyle.Render(strings.Repeat(" ", labelW+1)))
		b.WriteString(outStyle.Render(strings.Repeat("█", outLen)))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
