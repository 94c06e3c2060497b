package rules

import (
	"fmt"
	"math"

	"github.com/theirongolddev/atlas/internal/model"
)

// link pairs unvalidated, unlinked documents with the single unlinked movement
// of the same absolute amount inside the matching window. Amounts must be
// exactly equal. Ambiguous matches are reported and left alone.
func (e *Engine) link(st *model.State) []Change {
	window := float64(e.matchingDays(st))

	var changes []Change
	for i := range st.Documents {
		doc := &st.Documents[i]
		if doc.Status == model.StatusValidated || doc.LinkedMovementID != "" {
			continue
		}

		var candidates []int
		for j := range st.Movements {
			m := st.Movements[j]
			if m.LinkedDocumentID != "" {
				continue
			}
			if math.Abs(m.Amount) != doc.Amount {
				continue
			}
			if calendarDaysApart(m.Date, doc.Date) > window {
				continue
			}
			candidates = append(candidates, j)
		}

		switch len(candidates) {
		case 0:
		case 1:
			m := &st.Movements[candidates[0]]
			m.LinkedDocumentID = doc.ID
			doc.LinkedMovementID = m.ID
			doc.Status = model.StatusValidated
			changes = append(changes, Change{
				Pass:    PassLink,
				Kind:    KindLinked,
				Message: fmt.Sprintf("%s %.2f ↔ %s", doc.Provider, doc.Amount, m.Concept),
				IDs:     []string{doc.ID, m.ID},
			})
		default:
			ids := []string{doc.ID}
			for _, j := range candidates {
				ids = append(ids, st.Movements[j].ID)
			}
			changes = append(changes, Change{
				Pass:    PassLink,
				Kind:    KindManualReview,
				Message: fmt.Sprintf("%s %.2f: %d candidate movements, manual review needed", doc.Provider, doc.Amount, len(candidates)),
				IDs:     ids,
			})
		}
	}
	return changes
}
