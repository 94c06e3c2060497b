package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/tui/theme"
)

// SetupValues holds the answers of the first-run form. The form binds to its
// fields by pointer, so it must outlive the form.
type SetupValues struct {
	DataDir      string
	Currency     string
	Theme        string
	StartupDelay string
	DedupeAlerts bool
}

var currencyOptions = []string{"EUR", "USD", "GBP", "CHF"}

// DefaultSetupValues seeds the form from cfg.
func DefaultSetupValues(cfg config.Config) *SetupValues {
	return &SetupValues{
		DataDir:      config.DataDir(cfg),
		Currency:     cfg.General.Currency,
		Theme:        cfg.Appearance.Theme,
		StartupDelay: cfg.Rules.Delay().String(),
		DedupeAlerts: cfg.Rules.DedupeAlerts,
	}
}

// NewSetupForm builds the first-run wizard. The same form backs `atlas setup`.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, th := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(th.Name, th.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Bienvenido a atlas").
				Description("Unas preguntas y listo. Puedes repetirlo con `atlas setup`."),
			huh.NewInput().
				Title("Directorio de datos").
				Description("Aquí se guardan la base de datos y la bandeja de facturas.").
				Value(&v.DataDir),
			huh.NewSelect[string]().
				Title("Moneda").
				Options(huh.NewOptions(currencyOptions...)...).
				Value(&v.Currency),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tema").
				Options(themeOpts...).
				Value(&v.Theme),
			huh.NewInput().
				Title("Ejecutar reglas al iniciar tras").
				Description("Duración, p. ej. 1.5s. 0 desactiva la ejecución automática.").
				Validate(validateDuration).
				Value(&v.StartupDelay),
			huh.NewConfirm().
				Title("¿Evitar alertas duplicadas?").
				Value(&v.DedupeAlerts),
		),
	).WithShowHelp(true)
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return errNegativeDuration
	}
	return nil
}

// ApplySetup copies the answers onto cfg.
func ApplySetup(cfg config.Config, v *SetupValues) config.Config {
	if v.DataDir != config.DataDir(config.DefaultConfig()) {
		cfg.General.DataDir = v.DataDir
	}
	if v.Currency != "" {
		cfg.General.Currency = v.Currency
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
	cfg.Rules.StartupDelay = v.StartupDelay
	cfg.Rules.DedupeAlerts = v.DedupeAlerts
	return cfg
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.cfg = ApplySetup(a.cfg, a.setupVals)
		theme.SetActive(a.cfg.Appearance.Theme)
		if err := saveConfig(a.cfg); err != nil {
			a.settings.saveErr = err
		}
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}

	return a, cmd
}
