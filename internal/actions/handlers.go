package actions

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/store"
)

func (d *Dispatcher) invoiceDelete(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	if err := d.store.DeleteDocument(id); err != nil {
		return "", err
	}
	return "Factura eliminada", nil
}

func (d *Dispatcher) invoiceValidate(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	err = d.store.UpdateDocument(id, func(doc *model.Document) {
		doc.Status = model.StatusValidated
	})
	if err != nil {
		return "", err
	}
	return "Factura validada", nil
}

// invoiceCategorize sets category, property and deductibility. Without a
// category it asks the front end for one.
func (d *Dispatcher) invoiceCategorize(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	category := p["category"]
	if category == "" {
		d.modal("categorize", Params{"id": id})
		return "", nil
	}
	deductible, err := p.flag("deductible", true)
	if err != nil {
		return "", err
	}
	err = d.store.UpdateDocument(id, func(doc *model.Document) {
		doc.Category = category
		doc.IsDeductible = deductible
		if prop := p["property"]; prop != "" {
			doc.PropertyID = prop
		}
		if doc.Status == model.StatusReview {
			doc.Status = model.StatusPending
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Factura categorizada como %s", category), nil
}

func (d *Dispatcher) alertDismiss(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	if err := d.store.DismissAlert(id); err != nil {
		return "", err
	}
	return "Alerta descartada", nil
}

func (d *Dispatcher) ruleAdd(p Params) (string, error) {
	provider, err := p.require("provider")
	if err != nil {
		return "", err
	}
	category, err := p.require("category")
	if err != nil {
		return "", err
	}
	deductible, err := p.flag("deductible", true)
	if err != nil {
		return "", err
	}
	r, err := d.store.AddProviderRule(model.ProviderRule{
		ProviderContains: provider,
		Category:         category,
		IsDeductible:     deductible,
		PropertyID:       p["property"],
		Active:           true,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Regla añadida: %q → %s (orden %d)", r.ProviderContains, r.Category, r.Order), nil
}

func (d *Dispatcher) ruleToggle(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	var active bool
	err = d.store.UpdateProviderRule(id, func(r *model.ProviderRule) {
		r.Active = !r.Active
		active = r.Active
	})
	if err != nil {
		return "", err
	}
	if active {
		return "Regla activada", nil
	}
	return "Regla desactivada", nil
}

func (d *Dispatcher) ruleDelete(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	if err := d.store.DeleteProviderRule(id); err != nil {
		return "", err
	}
	return "Regla eliminada", nil
}

// loanAmortize applies an early repayment. Without an amount it asks the
// front end for one.
func (d *Dispatcher) loanAmortize(p Params) (string, error) {
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	if p["amount"] == "" {
		d.modal("amortize", Params{"id": id})
		return "", nil
	}
	amount, err := p.amount("amount")
	if err != nil {
		return "", err
	}
	mode := model.AmortizationMode(p["mode"])
	if mode == "" {
		mode = model.ReducePayment
	}
	rep, err := d.store.AmortizeLoan(id, amount, mode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Amortización aplicada: cuota %.2f €, %d meses, %.2f € de intereses ahorrados",
		rep.MonthlyPayment, rep.RemainingMonths, rep.InterestSaved), nil
}

func (d *Dispatcher) sweepConfigure(p Params) (string, error) {
	hub, err := p.require("hub")
	if err != nil {
		return "", err
	}
	enabled, err := p.flag("enabled", true)
	if err != nil {
		return "", err
	}
	if err := d.store.UpdateSweepConfig(model.SweepConfig{Enabled: enabled, HubAccountID: hub}); err != nil {
		return "", err
	}
	return "Configuración de barrido guardada", nil
}

// sweepExecute moves money between accounts and dismisses the alert that
// suggested it, when given.
func (d *Dispatcher) sweepExecute(p Params) (string, error) {
	from, err := p.require("from")
	if err != nil {
		return "", err
	}
	to, err := p.require("to")
	if err != nil {
		return "", err
	}
	amount, err := p.amount("amount")
	if err != nil {
		return "", err
	}
	if err := d.store.ExecuteSweep(from, to, amount); err != nil {
		return "", err
	}
	if alert := p["alert"]; alert != "" {
		if err := d.store.DismissAlert(alert); err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}
	return fmt.Sprintf("Traspaso de %.2f € ejecutado", amount), nil
}

func (d *Dispatcher) inboxProcess(p Params) (string, error) {
	if d.inbox == nil {
		return "", errors.New("inbox processing is not configured")
	}
	id, err := p.require("id")
	if err != nil {
		return "", err
	}
	doc, err := d.inbox.Process(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Documento creado: %s %.2f €", doc.Provider, doc.Amount), nil
}

func (d *Dispatcher) rulesRun(Params) (string, error) {
	report := d.store.RunRules(d.engine)
	d.metrics.observeRules(report.ByPass())
	if report.Empty() {
		return "Motor de reglas: sin cambios", nil
	}
	return fmt.Sprintf("Motor de reglas: %d cambios", len(report.Changes)), nil
}

func (d *Dispatcher) demoReset(Params) (string, error) {
	if err := d.store.ResetDemo(); err != nil {
		return "", err
	}
	return "Datos de demostración restaurados", nil
}
