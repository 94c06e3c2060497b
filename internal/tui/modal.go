package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

var (
	errNegativeDuration = errors.New("la duración no puede ser negativa")
	errInvalidAmount    = errors.New("importe no válido")
)

// modalValues backs the action dialogs. Fields are bound by pointer.
type modalValues struct {
	id         string
	category   string
	deductible bool
	property   string
	amount     string
	mode       string
}

// openModal builds the dialog requested by an action. Unknown names and
// missing targets are ignored.
func (a *App) openModal(name string, params map[string]string) tea.Cmd {
	vals := &modalValues{id: params["id"]}

	var form *huh.Form
	switch name {
	case "categorize":
		idx := a.state.DocumentIndex(vals.id)
		if idx < 0 {
			return nil
		}
		doc := a.state.Documents[idx]
		vals.category = doc.Category
		vals.deductible = doc.IsDeductible
		vals.property = doc.PropertyID
		form = newCategorizeForm(doc, a.state.Properties, vals)

	case "amortize":
		idx := a.state.LoanIndex(vals.id)
		if idx < 0 {
			return nil
		}
		vals.mode = string(model.ReducePayment)
		form = newAmortizeForm(a.state.Loans[idx], vals)

	default:
		return nil
	}

	a.modalKind = name
	a.modalVals = vals
	a.modal = form.WithWidth(min(max(a.width-10, 40), 70)).WithShowHelp(true)
	return a.modal.Init()
}

func newCategorizeForm(doc model.Document, props []model.Property, v *modalValues) *huh.Form {
	catOpts := make([]huh.Option[string], 0, len(config.CategoryNames()))
	for _, name := range config.CategoryNames() {
		catOpts = append(catOpts, huh.NewOption(name, name))
	}

	propOpts := []huh.Option[string]{huh.NewOption("(sin inmueble)", "")}
	for _, p := range props {
		propOpts = append(propOpts, huh.NewOption(p.Alias, p.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Categorizar documento").
				Description(fmt.Sprintf("%s · %s · %s", doc.Provider, cli.FormatDate(doc.Date), cli.FormatEUR(doc.Amount))),
			huh.NewSelect[string]().
				Title("Categoría").
				Options(catOpts...).
				Value(&v.category),
			huh.NewSelect[string]().
				Title("Inmueble").
				Options(propOpts...).
				Value(&v.property),
			huh.NewConfirm().
				Title("¿Deducible?").
				Value(&v.deductible),
		),
	)
}

func newAmortizeForm(loan model.Loan, v *modalValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Amortización anticipada").
				Description(fmt.Sprintf("%s · pendiente %s · cuota %s · %s",
					loan.Bank, cli.FormatEUR(loan.PendingCapital), cli.FormatEUR(loan.MonthlyPayment),
					cli.FormatMonths(loan.RemainingMonths))),
			huh.NewInput().
				Title("Importe").
				Placeholder("10000").
				Validate(func(s string) error {
					amt, err := parseAmount(s)
					if err != nil || amt <= 0 || amt > loan.PendingCapital {
						return errInvalidAmount
					}
					return nil
				}).
				Value(&v.amount),
			huh.NewSelect[string]().
				Title("Reducir").
				Options(
					huh.NewOption("Cuota", string(model.ReducePayment)),
					huh.NewOption("Plazo", string(model.ReduceTerm)),
				).
				Value(&v.mode),
		),
	)
}

// parseAmount accepts both "1234.5" and "1.234,5".
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

func (a App) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		a.closeModal()
		return a, nil
	}

	form, cmd := a.modal.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.modal = f
	}

	switch a.modal.State {
	case huh.StateCompleted:
		id, params := a.modalAction()
		a.closeModal()
		if id == "" {
			return a, nil
		}
		return a, a.runAction(id, params)
	case huh.StateAborted:
		a.closeModal()
		return a, nil
	}
	return a, cmd
}

// modalAction maps the dialog answers to the action that completes it.
func (a App) modalAction() (string, actions.Params) {
	v := a.modalVals
	switch a.modalKind {
	case "categorize":
		return actions.InvoiceCategorize, actions.Params{
			"id":         v.id,
			"category":   v.category,
			"deductible": strconv.FormatBool(v.deductible),
			"property":   v.property,
		}
	case "amortize":
		amt, err := parseAmount(v.amount)
		if err != nil {
			return "", nil
		}
		return actions.LoanAmortize, actions.Params{
			"id":     v.id,
			"amount": strconv.FormatFloat(amt, 'f', 2, 64),
			"mode":   v.mode,
		}
	}
	return "", nil
}

func (a *App) closeModal() {
	a.modal = nil
	a.modalKind = ""
	a.modalVals = nil
}

func (a App) viewModal() string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2).
		Render(a.modal.View())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}
