package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/tui/components"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

const (
	settingsFieldTheme = iota
	settingsFieldHorizon
	settingsFieldRevisionDays
	settingsFieldDedupe
	settingsFieldStartupDelay
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

// saveConfig persists the config; tests replace it.
var saveConfig = config.Save

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

func (a *App) settingsKey(key string) (bool, tea.Cmd) {
	switch key {
	case "j", "down":
		a.settings.cursor = min(a.settings.cursor+1, settingsFieldCount-1)
	case "k", "up":
		a.settings.cursor = max(a.settings.cursor-1, 0)
	case "enter":
		return true, a.settingsStartEdit()
	default:
		return false, nil
	}
	return true, nil
}

func (a *App) settingsStartEdit() tea.Cmd {
	cfg := a.cfg
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldHorizon:
		ti.Placeholder = "90"
		ti.SetValue(strconv.Itoa(cfg.Rules.PredictionHorizonDays))
	case settingsFieldRevisionDays:
		ti.Placeholder = "30"
		ti.SetValue(strconv.Itoa(cfg.Rules.RevisionAlertDays))
	case settingsFieldDedupe:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(cfg.Rules.DedupeAlerts))
	case settingsFieldStartupDelay:
		ti.Placeholder = "1.5s (0 desactiva)"
		ti.SetValue(cfg.Rules.Delay().String())
	}

	ti.Focus()
	a.settings.input = ti
	return ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

func (a *App) settingsSave() {
	cfg := a.cfg
	val := strings.TrimSpace(a.settings.input.Value())
	a.settings.saveErr = nil

	switch a.settings.cursor {
	case settingsFieldTheme:
		found := false
		for _, name := range theme.Names() {
			if name == val {
				found = true
				break
			}
		}
		if !found {
			a.settings.saveErr = fmt.Errorf("tema desconocido %q", val)
			return
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldHorizon, settingsFieldRevisionDays:
		d, err := strconv.Atoi(val)
		if err != nil || d <= 0 {
			a.settings.saveErr = fmt.Errorf("se esperaba un número de días: %q", val)
			return
		}
		if a.settings.cursor == settingsFieldHorizon {
			cfg.Rules.PredictionHorizonDays = d
		} else {
			cfg.Rules.RevisionAlertDays = d
		}
	case settingsFieldDedupe:
		v, err := strconv.ParseBool(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("se esperaba true o false: %q", val)
			return
		}
		cfg.Rules.DedupeAlerts = v
	case settingsFieldStartupDelay:
		d, err := time.ParseDuration(val)
		if err != nil || d < 0 {
			a.settings.saveErr = fmt.Errorf("duración no válida: %q", val)
			return
		}
		cfg.Rules.StartupDelay = val
	}

	if err := saveConfig(cfg); err != nil {
		a.settings.saveErr = err
		return
	}
	a.cfg = cfg
	a.rt.Config = cfg
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	type field struct {
		label string
		value string
	}

	fields := []field{
		{"Tema", cfg.Appearance.Theme},
		{"Horizonte previsión", fmt.Sprintf("%d días", cfg.Rules.PredictionHorizonDays)},
		{"Aviso revisión", fmt.Sprintf("%d días", cfg.Rules.RevisionAlertDays)},
		{"Deduplicar alertas", strconv.FormatBool(cfg.Rules.DedupeAlerts)},
		{"Reglas al iniciar", cfg.Rules.Delay().String()},
	}

	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-20s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-20s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker)
			formBody.WriteString(label)
			formBody.WriteString(value)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(label) + lipgloss.Width(value)
			if padLen := components.CardInnerWidth(cw) - usedWidth; padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-20s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("No se guardó: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Guardado"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navegar  [Enter] editar  [Esc] cancelar"))

	storage := config.DBPath(cfg)
	if a.rt.DB == nil {
		storage = "memoria (demo)"
	}

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Estado:       ") + valueStyle.Render(storage) + "\n")
	infoBody.WriteString(labelStyle.Render("Bandeja:      ") + valueStyle.Render(config.InboxDir(cfg)) + "\n")
	infoBody.WriteString(labelStyle.Render("Config:       ") + valueStyle.Render(config.ConfigPath()) + "\n")
	infoBody.WriteString(labelStyle.Render("Revisión:     ") + valueStyle.Render(cli.FormatNumber(a.revision)) + "\n")
	infoBody.WriteString(labelStyle.Render("Reglas:       ") + valueStyle.Render(fmt.Sprintf("%d activas de %d", activeRules(a), len(a.state.ProviderRules))) + "\n")
	infoBody.WriteString(labelStyle.Render("Documentos:   ") + valueStyle.Render(cli.FormatNumber(int64(len(a.state.Documents)))))

	var b strings.Builder
	b.WriteString(components.ContentCard("Ajustes", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))

	return b.String()
}

func activeRules(a App) int {
	n := 0
	for _, r := range a.state.ProviderRules {
		if r.Active {
			n++
		}
	}
	return n
}
