package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/finance"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// schedulePreview is how many upcoming installments the loans tab shows.
const schedulePreview = 6

func (a *App) loansKey(key string) (bool, tea.Cmd) {
	switch key {
	case "j", "down":
		a.loanSel = clampCursor(a.loanSel+1, len(a.loans))
	case "k", "up":
		a.loanSel = clampCursor(a.loanSel-1, len(a.loans))
	case "A", "enter":
		if a.loanSel >= len(a.loans) {
			return true, nil
		}
		return true, a.runAction(actions.LoanAmortize, actions.Params{"id": a.loans[a.loanSel].LoanID})
	default:
		return false, nil
	}
	return true, nil
}

func (a App) renderLoansTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	cards := []components.Metric{
		{Label: "Capital pendiente", Value: cli.FormatEUR(a.debt.PendingCapital),
			Delta: "de " + cli.FormatCompactEUR(a.debt.Principal) + " iniciales"},
		{Label: "Cuotas mensuales", Value: cli.FormatEUR(a.debt.MonthlyPayment),
			Delta: "tipo medio " + cli.FormatRate(a.debt.WeightedRate)},
		{Label: "Intereses por pagar", Value: cli.FormatCompactEUR(a.debt.InterestToPay),
			Delta: "amortizado " + cli.FormatCompactEUR(a.debt.AmortizedToDate), Color: t.Orange},
		{Label: "Próxima revisión", Value: components.FormatCountdown(a.rt.Store.Now(), a.debt.NextRevision),
			Delta: cli.FormatDate(a.debt.NextRevision)},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("Préstamos", a.renderLoanList(cw), cw))
	b.WriteString("\n")

	if a.loanSel < len(a.loans) {
		b.WriteString(a.renderLoanDetail(cw))
	}
	return b.String()
}

func (a App) renderLoanList(cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	header := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(a.loans) == 0 {
		return dim.Render("Sin préstamos")
	}

	const bankW, amountW, rateW, termW, revW = 12, 13, 7, 8, 10
	propW := max(innerW-bankW-amountW*2-rateW-termW-revW-6, 10)

	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("%-*s %-*s %*s %*s %*s %*s %*s",
		propW, "Inmueble", bankW, "Banco", amountW, "Pendiente", amountW, "Cuota",
		rateW, "Tipo", termW, "Plazo", revW, "Revisión")))
	b.WriteString("\n")

	for i, l := range a.loans {
		style := rowStyle
		if i == a.loanSel {
			style = selStyle
		}
		row := style.Render(fmt.Sprintf("%-*s %-*s %*s %*s %*s %*s %*s",
			propW, truncStr(l.Property, propW),
			bankW, truncStr(l.Bank, bankW),
			amountW, cli.FormatEUR(l.PendingCapital),
			amountW, cli.FormatEUR(l.MonthlyPayment),
			rateW, cli.FormatRate(l.InterestRate),
			termW, cli.FormatMonths(l.RemainingMonths),
			revW, cli.FormatDate(l.NextRevision)))
		if pad := innerW - lipgloss.Width(row); pad > 0 {
			row += style.Render(strings.Repeat(" ", pad))
		}
		b.WriteString(row)
		if i < len(a.loans)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderLoanDetail(cw int) string {
	t := theme.Active
	row := a.loans[a.loanSel]

	idx := a.state.LoanIndex(row.LoanID)
	if idx < 0 {
		return ""
	}
	loan := a.state.Loans[idx]

	header := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var left strings.Builder
	schedule, err := finance.Schedule(loan.PendingCapital, loan.InterestRate, loan.RemainingMonths)
	if err != nil {
		left.WriteString(dim.Render(err.Error()))
	} else {
		left.WriteString(header.Render(fmt.Sprintf("%3s %12s %12s %12s %14s", "#", "Cuota", "Interés", "Capital", "Pendiente")))
		for _, in := range schedule[:min(schedulePreview, len(schedule))] {
			left.WriteString("\n")
			left.WriteString(rowStyle.Render(fmt.Sprintf("%3d %12s %12s %12s %14s",
				in.Number,
				cli.FormatEUR(in.Payment.InexactFloat64()),
				cli.FormatEUR(in.Interest.InexactFloat64()),
				cli.FormatEUR(in.Principal.InexactFloat64()),
				cli.FormatEUR(in.Balance.InexactFloat64()))))
		}
		if len(schedule) > schedulePreview {
			left.WriteString("\n")
			left.WriteString(dim.Render(fmt.Sprintf("… %d cuotas más", len(schedule)-schedulePreview)))
		}
	}

	var right strings.Builder
	right.WriteString(muted.Render("Intereses por pagar: ") + rowStyle.Render(cli.FormatEUR(row.InterestToPay)))
	right.WriteString("\n")
	right.WriteString(muted.Render("Amortizado:          ") + rowStyle.Render(cli.FormatEUR(row.Amortized)))
	right.WriteString("\n\n")
	if len(loan.Amortizations) == 0 {
		right.WriteString(dim.Render("Sin amortizaciones anticipadas"))
	}
	for i, am := range loan.Amortizations {
		mode := "reduce cuota"
		if am.Mode == model.ReduceTerm {
			mode = "reduce plazo"
		}
		right.WriteString(rowStyle.Render(fmt.Sprintf("%s  %s  %s", cli.FormatDate(am.Date), cli.FormatEUR(am.Amount), mode)))
		if i < len(loan.Amortizations)-1 {
			right.WriteString("\n")
		}
	}
	right.WriteString("\n\n")
	right.WriteString(dim.Render("[A] amortizar  [j/k] seleccionar"))

	title := fmt.Sprintf("%s · %s", row.Property, row.Bank)
	if a.isCompactLayout() {
		return components.ContentCard(title, left.String(), cw) + "\n" +
			components.ContentCard("Amortizaciones", right.String(), cw)
	}
	halves := components.LayoutRow(cw, 2)
	return components.CardRow([]string{
		components.ContentCard(title, left.String(), halves[0]),
		components.ContentCard("Amortizaciones", right.String(), halves[1]),
	})
}
