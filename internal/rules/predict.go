package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/atlas/internal/model"
)

// predict rebuilds PredictedItems for the next HorizonDays: one item per
// month for every active loan (anchored on its next revision date) and every
// occupied property with rent (anchored on today). Previous items, including
// any manual edits, are discarded.
func (e *Engine) predict(st *model.State, now time.Time) []Change {
	today := startOfDay(now)
	horizon := today.AddDate(0, 0, e.cfg.HorizonDays)

	var items []model.PredictedItem

	for _, l := range st.Loans {
		if l.MonthlyPayment <= 0 || l.PendingCapital <= 0 {
			continue
		}
		anchor := l.NextRevision
		if anchor.IsZero() {
			anchor = today
		}
		for _, d := range monthlySteps(startOfDay(anchor), today, horizon) {
			items = append(items, model.PredictedItem{
				ID:        predictedID(model.PredictedLoanPayment, l.ID, d),
				Date:      d,
				Amount:    -l.MonthlyPayment,
				Kind:      model.PredictedLoanPayment,
				Concept:   fmt.Sprintf("Cuota préstamo %s", l.Bank),
				SourceID:  l.ID,
				AccountID: l.AccountID,
			})
		}
	}

	for _, p := range st.Properties {
		rent := p.EffectiveRent()
		if !p.Occupied() || rent <= 0 {
			continue
		}
		for _, d := range monthlySteps(today, today, horizon) {
			items = append(items, model.PredictedItem{
				ID:        predictedID(model.PredictedRent, p.ID, d),
				Date:      d,
				Amount:    rent,
				Kind:      model.PredictedRent,
				Concept:   fmt.Sprintf("Alquiler %s", p.Alias),
				SourceID:  p.ID,
				AccountID: p.AccountID,
			})
		}
	}

	previous := len(st.PredictedItems)
	st.PredictedItems = items
	if len(items) == 0 && previous == 0 {
		return nil
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return []Change{{
		Pass:    PassPredict,
		Kind:    KindPredicted,
		Message: fmt.Sprintf("%d predicted items until %s (replaced %d)", len(items), horizon.Format("2006-01-02"), previous),
		IDs:     ids,
	}}
}

// monthlySteps returns anchor + k months for every k that lands inside
// [from, until]. Steps are computed from the anchor to avoid day drift.
func monthlySteps(anchor, from, until time.Time) []time.Time {
	var out []time.Time
	for k := 0; ; k++ {
		d := anchor.AddDate(0, k, 0)
		if d.After(until) {
			return out
		}
		if d.Before(from) {
			continue
		}
		out = append(out, d)
	}
}

// predictedID is stable for a given source and date so repeated runs produce
// the same ids.
func predictedID(kind, sourceID string, d time.Time) string {
	key := kind + ":" + sourceID + ":" + d.Format("2006-01-02")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
