package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// statusFilters is the cycle order of the f key. Empty shows everything.
var statusFilters = []string{"", model.StatusPending, model.StatusReview, model.StatusValidated}

// documentsState tracks the documents tab.
type documentsState struct {
	cursor int

	searching   bool
	searchInput textinput.Model
	query       string
	filterIdx   int

	visible []model.Document
	all     []model.Document
}

func newDocumentsState() documentsState {
	ti := textinput.New()
	ti.Placeholder = "proveedor..."
	ti.CharLimit = 64
	ti.Width = 30
	ti.Prompt = "/ "
	return documentsState{searchInput: ti}
}

func (d *documentsState) statusFilter() string {
	return statusFilters[d.filterIdx%len(statusFilters)]
}

// refresh recomputes the visible list, keeping the cursor on the same
// document when it is still listed.
func (d *documentsState) refresh(docs []model.Document) {
	var selected string
	if d.cursor < len(d.visible) {
		selected = d.visible[d.cursor].ID
	}

	d.all = docs
	d.visible = pipeline.FilterDocuments(docs, pipeline.DocumentFilter{
		Status:   d.statusFilter(),
		Provider: d.query,
	})

	d.cursor = clampCursor(d.cursor, len(d.visible))
	for i, doc := range d.visible {
		if doc.ID == selected {
			d.cursor = i
			break
		}
	}
}

func (d documentsState) selected() (model.Document, bool) {
	if d.cursor < 0 || d.cursor >= len(d.visible) {
		return model.Document{}, false
	}
	return d.visible[d.cursor], true
}

func (a *App) documentsKey(key string) (bool, tea.Cmd) {
	d := &a.docs
	switch key {
	case "j", "down":
		d.cursor = clampCursor(d.cursor+1, len(d.visible))
	case "k", "up":
		d.cursor = clampCursor(d.cursor-1, len(d.visible))
	case "g", "home":
		d.cursor = 0
	case "G", "end":
		d.cursor = clampCursor(len(d.visible)-1, len(d.visible))
	case "/":
		d.searching = true
		d.searchInput.SetValue(d.query)
		d.searchInput.Focus()
		return true, textinput.Blink
	case "f":
		d.filterIdx = (d.filterIdx + 1) % len(statusFilters)
		d.cursor = 0
		d.refresh(d.all)
	case "esc":
		if d.query == "" && d.filterIdx == 0 {
			return false, nil
		}
		d.query = ""
		d.filterIdx = 0
		d.refresh(d.all)
	case "v", "D", "c":
		doc, ok := d.selected()
		if !ok {
			return true, nil
		}
		id := map[string]string{
			"v": actions.InvoiceValidate,
			"D": actions.InvoiceDelete,
			"c": actions.InvoiceCategorize,
		}[key]
		return true, a.runAction(id, actions.Params{"id": doc.ID})
	default:
		return false, nil
	}
	return true, nil
}

func (a App) updateDocumentsSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &a.docs
	switch msg.String() {
	case "enter":
		d.query = strings.TrimSpace(d.searchInput.Value())
		d.searching = false
		d.searchInput.Blur()
		d.cursor = 0
		d.refresh(d.all)
		return a, nil
	case "esc":
		d.searching = false
		d.searchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	d.searchInput, cmd = d.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderDocumentsTab(cw, h int) string {
	t := theme.Active
	d := a.docs

	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	header := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	innerW := components.CardInnerWidth(cw)

	aliases := make(map[string]string, len(a.state.Properties))
	for _, p := range a.state.Properties {
		aliases[p.ID] = p.Alias
	}

	// Fixed columns: date, amount, status; provider and category share the rest
	const dateW, amountW, statusW, propW = 10, 12, 10, 14
	flexW := max(innerW-dateW-amountW-statusW-propW-6, 20)
	providerW := flexW * 3 / 5
	categoryW := flexW - providerW

	var b strings.Builder

	// Filter line
	filter := "todos"
	if s := d.statusFilter(); s != "" {
		filter = s
	}
	line := muted.Render("Estado: ") + rowStyle.Render(filter)
	if d.searching {
		line += muted.Render("   ") + d.searchInput.View()
	} else if d.query != "" {
		line += muted.Render("   Proveedor: ") + rowStyle.Render(d.query)
	}
	b.WriteString(line)
	b.WriteString("\n\n")

	b.WriteString(header.Render(fmt.Sprintf("%-*s %-*s %-*s %-*s %*s %-*s",
		dateW, "Fecha", providerW, "Proveedor", categoryW, "Categoría", propW, "Inmueble",
		amountW, "Importe", statusW, "Estado")))
	b.WriteString("\n")

	// Rows visible inside the card: content height minus card chrome and
	// the filter, header and footer lines.
	rows := max(h-2-1-5, 3)
	offset := 0
	if d.cursor >= rows {
		offset = d.cursor - rows + 1
	}
	end := min(offset+rows, len(d.visible))

	if len(d.visible) == 0 {
		b.WriteString(dim.Render("Sin documentos"))
		b.WriteString("\n")
	}

	for i := offset; i < end; i++ {
		doc := d.visible[i]
		style := rowStyle
		if i == d.cursor {
			style = selStyle
		}
		category := doc.Category
		if category == "" {
			category = "-"
		}
		prop := aliases[doc.PropertyID]
		if prop == "" {
			prop = "-"
		}
		text := fmt.Sprintf("%-*s %-*s %-*s %-*s %*s ",
			dateW, cli.FormatDate(doc.Date),
			providerW, truncStr(doc.Provider, providerW),
			categoryW, truncStr(category, categoryW),
			propW, truncStr(prop, propW),
			amountW, cli.FormatEUR(doc.Amount))
		status := lipgloss.NewStyle().Foreground(t.ForStatus(doc.Status)).Background(style.GetBackground()).
			Render(fmt.Sprintf("%-*s", statusW, doc.Status))
		row := style.Render(text) + status
		if pad := innerW - lipgloss.Width(row); pad > 0 {
			row += style.Render(strings.Repeat(" ", pad))
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("%d de %d · [/] buscar  [f] estado  [v] validar  [c] categorizar  [D] eliminar",
		len(d.visible), len(d.all))))

	title := fmt.Sprintf("Documentos (%d pendientes)", a.stats.PendingDocuments)
	return components.ContentCard(title, b.String(), cw)
}
