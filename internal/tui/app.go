// Package tui provides the interactive Bubble Tea dashboard for atlas.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// StateMsg carries a fresh copy of the store document.
type StateMsg struct {
	State    model.State
	Revision int64
}

// EventMsg wraps one bus event.
type EventMsg struct {
	Event events.Event
}

// ActionDoneMsg reports that a dispatched action returned.
type ActionDoneMsg struct {
	ID  string
	Err error
}

// rulesDueMsg fires once after the startup delay.
type rulesDueMsg struct{}

type tickMsg time.Time

// App is the root Bubble Tea model.
type App struct {
	rt  *pipeline.Runtime
	cfg config.Config

	// Data
	state    model.State
	revision int64
	loaded   bool
	stats    model.SummaryStats
	props    []model.PropertyStats
	accounts []model.AccountStats
	cashflow []model.MonthlyCashflow
	debt     pipeline.DebtTotals
	loans    []pipeline.LoanBreakdown
	alerts   []model.Alert

	// Bus subscription
	events      <-chan events.Event
	unsubscribe func()

	// Feedback
	toast   *events.Toast
	toastAt time.Time
	busy    int // actions in flight
	spinner spinner.Model

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	docs     documentsState
	loanSel  int
	alertSel int
	settings settingsState

	// Action dialogs (huh forms opened by modal events)
	modal     *huh.Form
	modalKind string
	modalVals *modalValues

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	toastTTL         = 4 * time.Second
)

// NewApp creates the dashboard over rt. The app subscribes to the event bus
// immediately; call Close when the program exits.
func NewApp(rt *pipeline.Runtime, cfg config.Config) App {
	theme.SetActive(cfg.Appearance.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	ch, unsubscribe := rt.Bus.Subscribe(64)

	return App{
		rt:          rt,
		cfg:         cfg,
		events:      ch,
		unsubscribe: unsubscribe,
		spinner:     sp,
		needSetup:   !config.Exists(),
		docs:        newDocumentsState(),
	}
}

// Close releases the bus subscription.
func (a App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadStateCmd(a.rt),
		waitForEvent(a.events),
		a.spinner.Tick,
		tickCmd(),
	}
	if delay := a.cfg.Rules.Delay(); delay > 0 {
		cmds = append(cmds, tea.Tick(delay, func(time.Time) tea.Msg { return rulesDueMsg{} }))
	}
	return tea.Batch(cmds...)
}

func (a *App) recompute() {
	st := a.state
	a.stats = pipeline.Aggregate(st)
	a.props = pipeline.AggregateProperties(st)
	a.accounts = pipeline.AggregateAccounts(st)
	a.cashflow = pipeline.Cashflow(st)
	a.debt, a.loans = pipeline.AggregateDebt(st)
	a.alerts = pipeline.OpenAlerts(st.Alerts)

	a.docs.refresh(st.Documents)
	a.loanSel = clampCursor(a.loanSel, len(a.loans))
	a.alertSel = clampCursor(a.alertSel, len(a.alerts))
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		if a.modal != nil {
			a.modal = a.modal.WithWidth(min(msg.Width-10, 70))
		}
		return a, nil

	case StateMsg:
		a.state = msg.State
		a.revision = msg.Revision
		first := !a.loaded
		a.loaded = true
		a.recompute()
		if first && a.needSetup {
			a.setupVals = DefaultSetupValues(a.cfg)
			a.setupForm = NewSetupForm(a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case EventMsg:
		return a.handleEvent(msg.Event)

	case ActionDoneMsg:
		a.busy = max(a.busy-1, 0)
		return a, nil

	case rulesDueMsg:
		return a.dispatch(actions.RulesRun, nil)

	case tickMsg:
		if a.toast != nil && time.Since(a.toastAt) > toastTTL {
			a.toast = nil
		}
		return a, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Forward unhandled messages (cursor blinks, etc.) to an open form
	if a.modal != nil {
		return a.updateModal(msg)
	}
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) handleEvent(ev events.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(a.events)

	switch ev.Kind {
	case events.KindStateChanged:
		return a, tea.Batch(next, loadStateCmd(a.rt))
	case events.KindToast:
		a.toast = ev.Toast
		a.toastAt = time.Now()
	case events.KindModal:
		if ev.Modal != nil {
			cmd := a.openModal(ev.Modal.Name, ev.Modal.Params)
			return a, tea.Batch(next, cmd)
		}
	}
	return a, next
}

func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || a.modal != nil || (a.needSetup && a.setupForm != nil) {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.moveCursor(-1)
	case tea.MouseButtonWheelDown:
		a.moveCursor(1)
	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// Dialogs intercept all keys
	if a.modal != nil {
		return a.updateModal(msg)
	}
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabDocuments && a.docs.searching {
		return a.updateDocumentsSearch(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Tab-specific bindings take precedence over tab shortcuts
	var (
		handled bool
		cmd     tea.Cmd
	)
	switch a.activeTab {
	case tabDocuments:
		handled, cmd = a.documentsKey(key)
	case tabLoans:
		handled, cmd = a.loansKey(key)
	case tabAlerts:
		handled, cmd = a.alertsKey(key)
	case tabSettings:
		handled, cmd = a.settingsKey(key)
	}
	if handled {
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		return a.dispatch(actions.RulesRun, nil)
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// dispatch runs an action off the update loop. Feedback arrives through the
// bus as toasts and state changes.
func (a App) dispatch(id string, params actions.Params) (tea.Model, tea.Cmd) {
	cmd := a.runAction(id, params)
	return a, cmd
}

func (a *App) runAction(id string, params actions.Params) tea.Cmd {
	a.busy++
	rt := a.rt
	return func() tea.Msg {
		err := rt.Actions.Dispatch(id, params)
		return ActionDoneMsg{ID: id, Err: err}
	}
}

func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabDocuments:
		a.docs.cursor = clampCursor(a.docs.cursor+delta, len(a.docs.visible))
	case tabLoans:
		a.loanSel = clampCursor(a.loanSel+delta, len(a.loans))
	case tabAlerts:
		a.alertSel = clampCursor(a.alertSel+delta, len(a.alerts))
	}
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if a.modal != nil {
		return a.viewModal()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)

	msg := fmt.Sprintf(
		"\n  Terminal demasiado estrecho (%d columnas)\n\n  atlas necesita al menos %d columnas.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	body := logoStyle.Render("◈ atlas") +
		subtitleStyle.Render(" · Cartera inmobiliaria") + "\n\n" +
		a.spinner.View() + subtitleStyle.Render(" Cargando estado...")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navegación", [][2]string{
			{"o d l a x", "Ir a pestaña"},
			{"← → tab", "Pestaña anterior / siguiente"},
			{"j k", "Moverse por listas"},
		}},
		{"Documentos", [][2]string{
			{"/", "Buscar proveedor"},
			{"f", "Filtrar por estado"},
			{"v", "Validar"},
			{"c", "Categorizar"},
			{"D", "Eliminar"},
		}},
		{"Préstamos y alertas", [][2]string{
			{"A / Enter", "Amortizar préstamo"},
			{"Enter", "Ejecutar acción de la alerta"},
			{"z", "Descartar alerta"},
		}},
		{"General", [][2]string{
			{"r", "Ejecutar reglas"},
			{"?", "Ayuda"},
			{"q", "Salir"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Atajos de teclado"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Pulsa cualquier tecla para cerrar"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, a.toast, a.revision, a.state.LastUpdate, a.busy > 0)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabDocuments:
		content = a.renderDocumentsTab(cw, contentH)
	case tabLoans:
		content = a.renderLoansTab(cw)
	case tabAlerts:
		content = a.renderAlertsTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

func loadStateCmd(rt *pipeline.Runtime) tea.Cmd {
	return func() tea.Msg {
		return StateMsg{State: rt.Store.State(), Revision: rt.Store.Revision()}
	}
}

// waitForEvent blocks until the next bus event. A closed channel ends the
// subscription loop.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ─── Helpers ────────────────────────────────────────────────────

func clampCursor(c, n int) int {
	if c >= n {
		c = n - 1
	}
	return max(c, 0)
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
