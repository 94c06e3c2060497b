package store

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/theirongolddev/atlas/internal/finance"
	"github.com/theirongolddev/atlas/internal/model"
)

// AddDocument appends d, assigning an id, the pending status and the manual
// source when unset.
func (s *Store) AddDocument(d model.Document) (model.Document, error) {
	if d.Amount <= 0 {
		return model.Document{}, fmt.Errorf("document amount %.2f: %w", d.Amount, ErrInvalidAmount)
	}
	if d.ID == "" {
		d.ID = "doc-" + uuid.NewString()
	}
	if d.Status == "" {
		d.Status = model.StatusPending
	}
	if d.Source == "" {
		d.Source = model.SourceManual
	}
	if d.Date.IsZero() {
		d.Date = s.now()
	}
	err := s.mutate(func(st *model.State) error {
		st.Documents = append(st.Documents, d)
		return nil
	})
	return d, err
}

// UpdateDocument applies fn to the document with the given id.
func (s *Store) UpdateDocument(id string, fn func(*model.Document)) error {
	return s.mutate(func(st *model.State) error {
		i := st.DocumentIndex(id)
		if i < 0 {
			return notFound("document", id)
		}
		fn(&st.Documents[i])
		return nil
	})
}

// DeleteDocument removes a document and clears any movement linked to it.
func (s *Store) DeleteDocument(id string) error {
	return s.mutate(func(st *model.State) error {
		i := st.DocumentIndex(id)
		if i < 0 {
			return notFound("document", id)
		}
		st.Documents = append(st.Documents[:i], st.Documents[i+1:]...)
		for j := range st.Movements {
			if st.Movements[j].LinkedDocumentID == id {
				st.Movements[j].LinkedDocumentID = ""
			}
		}
		return nil
	})
}

// AddAlert appends a, filling id and creation time when unset.
func (s *Store) AddAlert(a model.Alert) (model.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.Severity == "" {
		a.Severity = model.SeverityInfo
	}
	err := s.mutate(func(st *model.State) error {
		st.Alerts = append(st.Alerts, a)
		return nil
	})
	return a, err
}

// UpdateAlert applies fn to the alert with the given id.
func (s *Store) UpdateAlert(id string, fn func(*model.Alert)) error {
	return s.mutate(func(st *model.State) error {
		i := st.AlertIndex(id)
		if i < 0 {
			return notFound("alert", id)
		}
		fn(&st.Alerts[i])
		return nil
	})
}

// DismissAlert marks an alert as dismissed.
func (s *Store) DismissAlert(id string) error {
	return s.UpdateAlert(id, func(a *model.Alert) { a.Dismissed = true })
}

// AddProviderRule appends r. A zero order places it after every existing rule.
func (s *Store) AddProviderRule(r model.ProviderRule) (model.ProviderRule, error) {
	if r.ID == "" {
		r.ID = "rule-" + uuid.NewString()
	}
	err := s.mutate(func(st *model.State) error {
		if r.Order == 0 {
			for _, existing := range st.ProviderRules {
				if existing.Order >= r.Order {
					r.Order = existing.Order + 1
				}
			}
			if r.Order == 0 {
				r.Order = 1
			}
		}
		st.ProviderRules = append(st.ProviderRules, r)
		return nil
	})
	return r, err
}

// UpdateProviderRule applies fn to the rule with the given id.
func (s *Store) UpdateProviderRule(id string, fn func(*model.ProviderRule)) error {
	return s.mutate(func(st *model.State) error {
		i := st.RuleIndex(id)
		if i < 0 {
			return notFound("rule", id)
		}
		fn(&st.ProviderRules[i])
		return nil
	})
}

// DeleteProviderRule removes the rule with the given id.
func (s *Store) DeleteProviderRule(id string) error {
	return s.mutate(func(st *model.State) error {
		i := st.RuleIndex(id)
		if i < 0 {
			return notFound("rule", id)
		}
		st.ProviderRules = append(st.ProviderRules[:i], st.ProviderRules[i+1:]...)
		return nil
	})
}

// UpdateSweepConfig replaces the sweep settings. An enabled sweep needs an
// existing hub account.
func (s *Store) UpdateSweepConfig(cfg model.SweepConfig) error {
	return s.mutate(func(st *model.State) error {
		if cfg.Enabled && st.AccountIndex(cfg.HubAccountID) < 0 {
			return notFound("account", cfg.HubAccountID)
		}
		for i := range st.Accounts {
			st.Accounts[i].IsHub = st.Accounts[i].ID == cfg.HubAccountID
		}
		st.Config.Sweep = cfg
		return nil
	})
}

// AddAmortization subtracts amount from the loan's pending capital (never
// below zero), records it and recomputes the payment over the remaining term.
func (s *Store) AddAmortization(loanID string, amount float64) (model.Loan, error) {
	if amount <= 0 {
		return model.Loan{}, fmt.Errorf("amortization %.2f: %w", amount, ErrInvalidAmount)
	}
	var out model.Loan
	err := s.mutate(func(st *model.State) error {
		i := st.LoanIndex(loanID)
		if i < 0 {
			return notFound("loan", loanID)
		}
		l := &st.Loans[i]
		l.PendingCapital = math.Max(0, l.PendingCapital-amount)
		l.Amortizations = append(l.Amortizations, model.Amortization{
			Date:   s.now(),
			Amount: amount,
			Mode:   model.ReducePayment,
		})
		if l.PendingCapital == 0 {
			l.MonthlyPayment = 0
			l.RemainingMonths = 0
		} else if l.RemainingMonths > 0 {
			l.MonthlyPayment = finance.FrenchPayment(l.PendingCapital, l.InterestRate, l.RemainingMonths)
		}
		out = *l
		return nil
	})
	return out, err
}

// AmortizeLoan applies an early repayment that either shortens the term or
// lowers the payment.
func (s *Store) AmortizeLoan(loanID string, amount float64, mode model.AmortizationMode) (finance.Repayment, error) {
	if amount <= 0 {
		return finance.Repayment{}, fmt.Errorf("amortization %.2f: %w", amount, ErrInvalidAmount)
	}
	var rep finance.Repayment
	err := s.mutate(func(st *model.State) error {
		i := st.LoanIndex(loanID)
		if i < 0 {
			return notFound("loan", loanID)
		}
		l := &st.Loans[i]
		r, err := finance.EarlyRepayment(*l, amount, mode)
		if err != nil {
			return fmt.Errorf("amortizing loan %s: %w", loanID, err)
		}
		if mode == "" {
			mode = model.ReducePayment
		}
		l.PendingCapital = r.PendingCapital
		l.MonthlyPayment = r.MonthlyPayment
		l.RemainingMonths = r.RemainingMonths
		l.Amortizations = append(l.Amortizations, model.Amortization{Date: s.now(), Amount: amount, Mode: mode})
		rep = r
		return nil
	})
	return rep, err
}

// ExecuteSweep moves amount from one account to another, records both
// movements and refreshes the health of each account.
func (s *Store) ExecuteSweep(fromID, toID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("sweep %.2f: %w", amount, ErrInvalidAmount)
	}
	return s.mutate(func(st *model.State) error {
		fi := st.AccountIndex(fromID)
		if fi < 0 {
			return notFound("account", fromID)
		}
		ti := st.AccountIndex(toID)
		if ti < 0 {
			return notFound("account", toID)
		}
		from, to := &st.Accounts[fi], &st.Accounts[ti]
		from.BalanceToday -= amount
		to.BalanceToday += amount
		from.Health = AccountHealth(*from)
		to.Health = AccountHealth(*to)

		now := s.now()
		st.Movements = append(st.Movements,
			model.Movement{ID: "mov-" + uuid.NewString(), Date: now, Amount: -amount, Concept: "Traspaso a " + to.Name, AccountID: from.ID},
			model.Movement{ID: "mov-" + uuid.NewString(), Date: now, Amount: amount, Concept: "Traspaso desde " + from.Name, AccountID: to.ID},
		)
		return nil
	})
}

// AccountHealth classifies a balance: at or above target is ok, at least
// half of it is a warning, anything lower is critical.
func AccountHealth(a model.Account) model.Health {
	switch {
	case a.BalanceToday >= a.TargetBalance:
		return model.HealthOK
	case a.BalanceToday >= a.TargetBalance/2:
		return model.HealthWarning
	default:
		return model.HealthCritical
	}
}

// AddInboxEntry registers a received file.
func (s *Store) AddInboxEntry(e model.InboxEntry) (model.InboxEntry, error) {
	if e.ID == "" {
		e.ID = "inbox-" + uuid.NewString()
	}
	if e.Status == "" {
		e.Status = model.InboxPending
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = s.now()
	}
	err := s.mutate(func(st *model.State) error {
		st.Inbox = append(st.Inbox, e)
		return nil
	})
	return e, err
}

// UpdateInboxEntry applies fn to the entry with the given id.
func (s *Store) UpdateInboxEntry(id string, fn func(*model.InboxEntry)) error {
	return s.mutate(func(st *model.State) error {
		i := st.InboxIndex(id)
		if i < 0 {
			return notFound("inbox entry", id)
		}
		fn(&st.Inbox[i])
		return nil
	})
}

// ProcessInboxEntry stores doc and marks the entry as processed in one update.
func (s *Store) ProcessInboxEntry(id string, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		doc.ID = "doc-" + uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = model.StatusPending
	}
	err := s.mutate(func(st *model.State) error {
		i := st.InboxIndex(id)
		if i < 0 {
			return notFound("inbox entry", id)
		}
		if st.Inbox[i].Status == model.InboxProcessed {
			return fmt.Errorf("inbox entry %q already processed", id)
		}
		if doc.Date.IsZero() {
			doc.Date = st.Inbox[i].ReceivedAt
		}
		st.Inbox[i].Status = model.InboxProcessed
		st.Inbox[i].DocumentID = doc.ID
		st.Documents = append(st.Documents, doc)
		return nil
	})
	return doc, err
}
