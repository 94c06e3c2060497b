package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

func (a *App) alertsKey(key string) (bool, tea.Cmd) {
	switch key {
	case "j", "down":
		a.alertSel = clampCursor(a.alertSel+1, len(a.alerts))
		return true, nil
	case "k", "up":
		a.alertSel = clampCursor(a.alertSel-1, len(a.alerts))
		return true, nil
	}

	if a.alertSel >= len(a.alerts) {
		return false, nil
	}
	al := a.alerts[a.alertSel]

	switch key {
	case "z", "backspace":
		return true, a.runAction(actions.AlertDismiss, actions.Params{"id": al.ID})
	case "enter", "1", "2", "3":
		n := 0
		if key != "enter" {
			n = int(key[0] - '1')
		}
		if n >= len(al.Actions) {
			return true, nil
		}
		act := al.Actions[n]
		params := actions.Params{}
		for k, v := range act.Params {
			params[k] = v
		}
		return true, a.runAction(act.Action, params)
	}
	return false, nil
}

func (a App) renderAlertsTab(cw, h int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)

	counts := severityCounts(a.alerts)
	var b strings.Builder

	cards := []components.Metric{
		{Label: "Críticas", Value: cli.FormatNumber(int64(counts[model.SeverityCritical])), Color: t.Red},
		{Label: "Avisos", Value: cli.FormatNumber(int64(counts[model.SeverityWarning])), Color: t.Orange},
		{Label: "Informativas", Value: cli.FormatNumber(int64(counts[model.SeverityInfo])), Color: t.Blue},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	var list strings.Builder
	if len(a.alerts) == 0 {
		list.WriteString(dim.Render("Sin alertas abiertas"))
	}

	// Each alert takes two lines; keep the selected one on screen.
	rows := max((h-lipgloss.Height(b.String())-4)/2, 2)
	offset := 0
	if a.alertSel >= rows {
		offset = a.alertSel - rows + 1
	}
	end := min(offset+rows, len(a.alerts))

	now := a.rt.Store.Now()
	for i := offset; i < end; i++ {
		al := a.alerts[i]
		style := rowStyle
		if i == a.alertSel {
			style = selStyle
		}
		sev := lipgloss.NewStyle().Foreground(t.ForSeverity(al.Severity)).Background(style.GetBackground()).Bold(true).
			Render(fmt.Sprintf("%-5s", severityLabel(al.Severity)))
		age := components.FormatCountdown(al.CreatedAt, now)
		title := style.Render(" " + truncStr(al.Title, innerW-12))
		line := sev + title
		if pad := innerW - lipgloss.Width(line) - len(age); pad > 0 {
			line += style.Render(strings.Repeat(" ", pad))
		}
		line += lipgloss.NewStyle().Foreground(t.TextDim).Background(style.GetBackground()).Render(age)
		list.WriteString(line)
		list.WriteString("\n")

		detail := "      " + al.Message
		if i == a.alertSel && len(al.Actions) > 0 {
			var acts []string
			for n, act := range al.Actions {
				acts = append(acts, keyStyle.Render(fmt.Sprintf("[%d]", n+1))+muted.Render(" "+act.Label))
			}
			list.WriteString(muted.Render(truncStr(detail, innerW/2)) + muted.Render("  ") + strings.Join(acts, muted.Render("  ")))
		} else {
			list.WriteString(dim.Render(truncStr(detail, innerW)))
		}
		if i < end-1 {
			list.WriteString("\n")
		}
	}
	list.WriteString("\n\n")
	list.WriteString(dim.Render("[Enter] primera acción  [1-3] acción  [z] descartar  [r] ejecutar reglas"))

	b.WriteString(components.ContentCard(fmt.Sprintf("Alertas (%d)", len(a.alerts)), list.String(), cw))
	return b.String()
}

func severityLabel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "CRIT"
	case model.SeverityWarning:
		return "WARN"
	}
	return "INFO"
}
