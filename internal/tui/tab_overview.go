package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// Tab indices, matching components.Tabs.
const (
	tabOverview = iota
	tabDocuments
	tabLoans
	tabAlerts
	tabSettings
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	stats := a.stats
	var b strings.Builder

	// Row 1: headline metrics
	occupancy := fmt.Sprintf("%d/%d unidades (%s)", stats.OccupiedUnits, stats.Units, cli.FormatPercent(stats.OccupancyRate))
	balanceDelta := "7d " + cli.FormatDelta(stats.BalanceDelta7) + " · 30d " + cli.FormatDelta(stats.BalanceDelta30)

	risk := "todas cubiertas"
	riskColor := t.Green
	if stats.AccountsAtRisk > 0 {
		risk = fmt.Sprintf("%d cuentas en riesgo", stats.AccountsAtRisk)
		riskColor = t.Orange
	}

	cards := []components.Metric{
		{Label: "Inmuebles", Value: cli.FormatNumber(int64(stats.Properties)), Delta: occupancy},
		{Label: "Neto mensual", Value: cli.FormatEUR(stats.NetMonthly), Delta: "renta " + cli.FormatCompactEUR(stats.MonthlyRent),
			Color: t.ForAmount(stats.NetMonthly)},
		{Label: "Tesorería", Value: cli.FormatEUR(stats.TotalBalance), Delta: balanceDelta},
		{Label: "Cobertura", Value: risk, Delta: fmt.Sprintf("%d alertas abiertas", stats.OpenAlerts), Color: riskColor},
	}
	if !a.isCompactLayout() {
		cards = append(cards, components.Metric{
			Label: "Deuda pendiente",
			Value: cli.FormatCompactEUR(stats.PendingCapital),
			Delta: fmt.Sprintf("%d docs pendientes (%s)", stats.PendingDocuments, cli.FormatCompactEUR(stats.PendingAmount)),
		})
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: account coverage + property ranking
	var leftW, rightW int
	if a.isCompactLayout() {
		leftW, rightW = cw, cw
	} else {
		halves := components.LayoutRow(cw, 2)
		leftW, rightW = halves[0], halves[1]
	}

	accounts := components.ContentCard("Cobertura de cuentas", a.renderCoverage(leftW), leftW)
	props := components.ContentCard("Neto por inmueble", a.renderPropertyBars(rightW), rightW)
	if a.isCompactLayout() {
		b.WriteString(accounts)
		b.WriteString("\n")
		b.WriteString(props)
	} else {
		b.WriteString(components.CardRow([]string{accounts, props}))
	}
	b.WriteString("\n")

	// Row 3: predicted cashflow
	if len(a.cashflow) > 0 {
		rows := make([]components.FlowRow, len(a.cashflow))
		for i, m := range a.cashflow {
			rows[i] = components.FlowRow{Label: cli.FormatMonth(m.Month), In: m.Inflows, Out: m.Outflows}
		}
		title := fmt.Sprintf("Flujo previsto (%d movimientos)", len(a.state.PredictedItems))
		b.WriteString(components.ContentCard(title,
			components.FlowChart(rows, components.CardInnerWidth(cw), cli.FormatCompactEUR), cw))
	}

	return b.String()
}

func (a App) renderCoverage(outerW int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(outerW)

	if len(a.accounts) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("Sin cuentas")
	}

	labelW := 0
	for _, acc := range a.accounts {
		labelW = max(labelW, len([]rune(acc.Name)))
	}
	labelW = min(labelW, 18)
	barW := max(innerW-labelW-7, 8)

	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	for i, acc := range a.accounts {
		b.WriteString(components.CoverageBar(acc.Name, acc.Balance, acc.Target, labelW, barW))
		b.WriteString("\n")
		detail := fmt.Sprintf("%-*s %s / %s", labelW, "", cli.FormatEUR(acc.Balance), cli.FormatEUR(acc.Target))
		if acc.Forecast != acc.Balance {
			detail += " → " + cli.FormatEUR(acc.Forecast)
		}
		b.WriteString(dim.Render(truncStr(detail, innerW)))
		if i < len(a.accounts)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderPropertyBars(outerW int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(outerW)

	if len(a.props) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("Sin inmuebles")
	}

	peak := 0.0
	labelW := 0
	for _, p := range a.props {
		peak = max(peak, abs(p.NetMonthly))
		labelW = max(labelW, len([]rune(p.Alias)))
	}
	labelW = min(labelW, 16)
	valueW := 10
	barW := max(innerW-labelW-valueW-2, 5)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	for i, p := range a.props {
		n := 0
		if peak > 0 {
			n = int(abs(p.NetMonthly) / peak * float64(barW))
		}
		color := t.ForAmount(p.NetMonthly)
		if p.Status != model.PropertyRented {
			color = t.TextDim
		}
		bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(strings.Repeat("█", n))
		value := lipgloss.NewStyle().Foreground(t.ForAmount(p.NetMonthly)).Background(t.Surface).
			Render(fmt.Sprintf("%*s", valueW, cli.FormatCompactEUR(p.NetMonthly)))

		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncStr(p.Alias, labelW))))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(value)
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(bar)
		if p.Documents > 0 {
			b.WriteString(dim.Render(fmt.Sprintf(" %dd", p.Documents)))
		}
		if i < len(a.props)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// severityCounts tallies open alerts by severity.
func severityCounts(alerts []model.Alert) map[model.Severity]int {
	counts := make(map[model.Severity]int, 3)
	for _, al := range alerts {
		counts[al.Severity]++
	}
	return counts
}
