package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/atlas/internal/model"
)

// DefaultCapexYears is used when a CAPEX document has no amortization period.
const DefaultCapexYears = 10

// FiscalSummary is the yearly tax view of one property.
type FiscalSummary struct {
	PropertyID        string
	Alias             string
	Year              int
	Income            float64
	Expenses          float64 // fully deductible ("gasto")
	CapexAmortization float64 // yearly share of capex documents still amortizing
	RC                float64 // repair/maintenance spent this year
	RCDeductible      float64 // RC capped at income
	RCCarryForward    float64 // RC above the cap
	Net               float64
}

// FiscalYear builds one summary per property for the given year. Only
// deductible documents count. Income is the effective monthly rent × 12.
func FiscalYear(st model.State, year int) []FiscalSummary {
	out := make([]FiscalSummary, 0, len(st.Properties))
	for _, p := range st.Properties {
		out = append(out, propertyFiscalYear(st, p, year))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

func propertyFiscalYear(st model.State, p model.Property, year int) FiscalSummary {
	income := decimal.NewFromFloat(p.EffectiveRent()).Mul(decimal.NewFromInt(12))
	expenses := decimal.Zero
	capex := decimal.Zero
	rc := decimal.Zero

	for _, d := range st.Documents {
		if d.PropertyID != p.ID || !d.IsDeductible {
			continue
		}
		amount := decimal.NewFromFloat(d.Amount)
		docYear := d.Date.Year()

		switch d.FiscalTreatment {
		case model.TreatmentCapex:
			years := d.AmortizationYears
			if years <= 0 {
				years = DefaultCapexYears
			}
			if year >= docYear && year < docYear+years {
				capex = capex.Add(amount.Div(decimal.NewFromInt(int64(years))))
			}
		case model.TreatmentRC:
			if docYear == year {
				rc = rc.Add(amount)
			}
		default:
			if docYear == year {
				expenses = expenses.Add(amount)
			}
		}
	}

	rcDeductible := decimal.Min(rc, income)
	carry := rc.Sub(rcDeductible)
	net := income.Sub(expenses).Sub(capex).Sub(rcDeductible)

	return FiscalSummary{
		PropertyID:        p.ID,
		Alias:             p.Alias,
		Year:              year,
		Income:            income.Round(2).InexactFloat64(),
		Expenses:          expenses.Round(2).InexactFloat64(),
		CapexAmortization: capex.Round(2).InexactFloat64(),
		RC:                rc.Round(2).InexactFloat64(),
		RCDeductible:      rcDeductible.Round(2).InexactFloat64(),
		RCCarryForward:    carry.Round(2).InexactFloat64(),
		Net:               net.Round(2).InexactFloat64(),
	}
}
