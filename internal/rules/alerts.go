package rules

import (
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/atlas/internal/model"
)

// sweeps suggests a transfer from the hub to every account below target when
// the hub's surplus covers that account's shortfall. Accounts are checked
// independently against the full surplus.
func (e *Engine) sweeps(st *model.State, now time.Time) []Change {
	cfg := st.Config.Sweep
	if !cfg.Enabled || cfg.HubAccountID == "" {
		return nil
	}
	hubIdx := st.AccountIndex(cfg.HubAccountID)
	if hubIdx < 0 {
		return nil
	}
	hub := st.Accounts[hubIdx]
	surplus := hub.Surplus()

	var changes []Change
	for _, acc := range st.Accounts {
		if acc.ID == hub.ID {
			continue
		}
		shortfall := acc.Shortfall()
		if shortfall <= 0 || surplus < shortfall {
			continue
		}

		severity := model.SeverityWarning
		if acc.Health == model.HealthCritical {
			severity = model.SeverityCritical
		}
		amount := strconv.FormatFloat(shortfall, 'f', 2, 64)
		alert := model.Alert{
			ID:       e.newID(),
			Type:     model.AlertSweep,
			Severity: severity,
			Title:    fmt.Sprintf("Traspaso sugerido a %s", acc.Name),
			Message: fmt.Sprintf("%s está %.2f € por debajo de su objetivo; %s tiene %.2f € de excedente.",
				acc.Name, shortfall, hub.Name, surplus),
			SourceID:  acc.ID,
			CreatedAt: now,
		}
		alert.Actions = []model.AlertAction{
			{Label: "Ejecutar traspaso", Action: "sweep:execute", Params: map[string]string{
				"from": hub.ID, "to": acc.ID, "amount": amount, "alert": alert.ID,
			}},
			{Label: "Descartar", Action: "alert:dismiss", Params: map[string]string{"id": alert.ID}},
		}
		if !e.appendAlert(st, alert) {
			continue
		}
		changes = append(changes, Change{
			Pass:    PassSweep,
			Kind:    KindSweepSuggested,
			Message: fmt.Sprintf("%s → %s: %s €", hub.Name, acc.Name, amount),
			IDs:     []string{alert.ID, hub.ID, acc.ID},
		})
	}
	return changes
}

// stateAlerts raises one alert per pending unlinked document and one per loan
// whose revision falls within RevisionAlertDays.
func (e *Engine) stateAlerts(st *model.State, now time.Time) []Change {
	var changes []Change

	for _, d := range st.Documents {
		if d.Status != model.StatusPending || d.LinkedMovementID != "" {
			continue
		}
		alert := model.Alert{
			ID:        e.newID(),
			Type:      model.AlertPendingDocument,
			Severity:  model.SeverityInfo,
			Title:     fmt.Sprintf("Factura pendiente: %s", d.Provider),
			Message:   fmt.Sprintf("%.2f € del %s sin movimiento asociado.", d.Amount, d.Date.Format("02/01/2006")),
			SourceID:  d.ID,
			CreatedAt: now,
			Actions: []model.AlertAction{
				{Label: "Validar", Action: "invoice:validate", Params: map[string]string{"id": d.ID}},
				{Label: "Eliminar", Action: "invoice:delete", Params: map[string]string{"id": d.ID}},
			},
		}
		if e.appendAlert(st, alert) {
			changes = append(changes, Change{
				Pass:    PassAlerts,
				Kind:    KindAlertAdded,
				Message: alert.Title,
				IDs:     []string{alert.ID, d.ID},
			})
		}
	}

	today := startOfDay(now)
	limit := today.AddDate(0, 0, e.cfg.RevisionAlertDays)
	for _, l := range st.Loans {
		if l.NextRevision.IsZero() {
			continue
		}
		rev := startOfDay(l.NextRevision)
		if rev.Before(today) || rev.After(limit) {
			continue
		}
		days := int(rev.Sub(today).Hours() / 24)
		id := e.newID()
		alert := model.Alert{
			ID:        id,
			Type:      model.AlertLoanRevision,
			Severity:  model.SeverityWarning,
			Title:     fmt.Sprintf("Revisión del préstamo %s en %d días", l.Bank, days),
			Message:   fmt.Sprintf("Capital pendiente %.2f € al %.2f%%.", l.PendingCapital, l.InterestRate),
			SourceID:  l.ID,
			CreatedAt: now,
			Actions: []model.AlertAction{
				{Label: "Descartar", Action: "alert:dismiss", Params: map[string]string{"id": id}},
			},
		}
		if e.appendAlert(st, alert) {
			changes = append(changes, Change{
				Pass:    PassAlerts,
				Kind:    KindAlertAdded,
				Message: alert.Title,
				IDs:     []string{alert.ID, l.ID},
			})
		}
	}
	return changes
}
