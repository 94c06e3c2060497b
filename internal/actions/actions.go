// Package actions maps action ids (as carried by alert buttons, the CLI and
// the HTTP API) to store operations and reports the outcome as toasts.
package actions

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/rules"
	"github.com/theirongolddev/atlas/internal/store"
)

var (
	// ErrUnknownAction is returned for ids with no registered handler.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingParam is returned when a required parameter is absent or
	// malformed.
	ErrMissingParam = errors.New("missing parameter")
)

// Action ids.
const (
	InvoiceDelete     = "invoice:delete"
	InvoiceValidate   = "invoice:validate"
	InvoiceCategorize = "invoice:categorize"
	AlertDismiss      = "alert:dismiss"
	RuleAdd           = "rule:add"
	RuleToggle        = "rule:toggle"
	RuleDelete        = "rule:delete"
	LoanAmortize      = "loan:amortize"
	SweepConfigure    = "sweep:configure"
	SweepExecute      = "sweep:execute"
	InboxProcess      = "inbox:process"
	RulesRun          = "rules:run"
	DemoReset         = "demo:reset"
)

// Params are the string parameters of one action.
type Params map[string]string

// Handler performs an action and returns the success message.
type Handler func(p Params) (string, error)

// InboxProcessor turns a pending inbox entry into a document.
type InboxProcessor interface {
	Process(id string) (model.Document, error)
}

// Dispatcher routes action ids to handlers.
type Dispatcher struct {
	store    *store.Store
	bus      *events.Bus
	engine   *rules.Engine
	inbox    InboxProcessor
	metrics  *Metrics
	log      *slog.Logger
	handlers map[string]Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInbox enables inbox:process.
func WithInbox(p InboxProcessor) Option { return func(d *Dispatcher) { d.inbox = p } }

// WithMetrics counts dispatches in m.
func WithMetrics(m *Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// WithLogger sets the logger for unknown or failed actions.
func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// New returns a dispatcher with every built-in action registered.
func New(s *store.Store, bus *events.Bus, engine *rules.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  s,
		bus:    bus,
		engine: engine,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	d.handlers = map[string]Handler{
		InvoiceDelete:     d.invoiceDelete,
		InvoiceValidate:   d.invoiceValidate,
		InvoiceCategorize: d.invoiceCategorize,
		AlertDismiss:      d.alertDismiss,
		RuleAdd:           d.ruleAdd,
		RuleToggle:        d.ruleToggle,
		RuleDelete:        d.ruleDelete,
		LoanAmortize:      d.loanAmortize,
		SweepConfigure:    d.sweepConfigure,
		SweepExecute:      d.sweepExecute,
		InboxProcess:      d.inboxProcess,
		RulesRun:          d.rulesRun,
		DemoReset:         d.demoReset,
	}
	return d
}

// Register adds or replaces the handler for id.
func (d *Dispatcher) Register(id string, h Handler) {
	d.handlers[id] = h
}

// IDs returns the registered action ids, sorted.
func (d *Dispatcher) IDs() []string {
	ids := make([]string, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch runs the action id with params. Every outcome is published as a
// toast: success, error for failures (including not-found lookups) and warning
// for unknown ids.
func (d *Dispatcher) Dispatch(id string, params Params) error {
	h, ok := d.handlers[id]
	if !ok {
		d.log.Warn("unknown action", "action", id)
		d.toast(events.LevelWarning, "Acción desconocida: %s", id)
		d.metrics.observe(id, "unknown")
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if params == nil {
		params = Params{}
	}

	msg, err := h(params)
	switch {
	case err == nil:
		d.metrics.observe(id, "ok")
		if msg != "" {
			d.toast(events.LevelSuccess, "%s", msg)
		}
		return nil
	case errors.Is(err, store.ErrNotFound):
		d.metrics.observe(id, "not_found")
		d.toast(events.LevelError, "No encontrado: %v", err)
	default:
		d.metrics.observe(id, "error")
		d.toast(events.LevelError, "%s: %v", id, err)
	}
	d.log.Debug("action failed", "action", id, "err", err)
	return fmt.Errorf("%s: %w", id, err)
}

func (d *Dispatcher) toast(level events.Level, format string, args ...any) {
	if d.bus != nil {
		d.bus.Toast(level, format, args...)
	}
}

func (d *Dispatcher) modal(name string, p Params) {
	if d.bus != nil {
		d.bus.OpenModal(name, p)
	}
}

func (p Params) require(key string) (string, error) {
	v := strings.TrimSpace(p[key])
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

func (p Params) amount(key string) (float64, error) {
	v, err := p.require(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMissingParam, key, v)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s=%s: %w", key, v, store.ErrInvalidAmount)
	}
	return f, nil
}

// flag parses an optional boolean, returning def when absent.
func (p Params) flag(key string, def bool) (bool, error) {
	v := strings.TrimSpace(p[key])
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrMissingParam, key, v)
	}
	return b, nil
}
