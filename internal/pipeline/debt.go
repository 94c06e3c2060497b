package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/atlas/internal/model"
)

// DebtTotals holds portfolio-wide loan figures.
type DebtTotals struct {
	Principal        float64
	PendingCapital   float64
	MonthlyPayment   float64
	InterestToPay    float64
	AmortizedToDate  float64
	WeightedRate     float64 // by pending capital
	NextRevision     time.Time
	NextRevisionLoan string
}

// LoanBreakdown holds the debt figures of one loan.
type LoanBreakdown struct {
	LoanID          string
	Bank            string
	Property        string
	PendingCapital  float64
	MonthlyPayment  float64
	RemainingMonths int
	InterestRate    float64
	InterestToPay   float64 // payment × months − pending capital
	Amortized       float64 // sum of early repayments
	NextRevision    time.Time
}

// AggregateDebt computes loan totals and per-loan rows sorted by pending
// capital descending. Sums use decimal arithmetic.
func AggregateDebt(st model.State) (DebtTotals, []LoanBreakdown) {
	var totals DebtTotals
	var principal, pending, payment, interest, amortized, weighted decimal.Decimal

	aliases := make(map[string]string, len(st.Properties))
	for _, p := range st.Properties {
		aliases[p.ID] = p.Alias
	}

	rows := make([]LoanBreakdown, 0, len(st.Loans))
	for _, l := range st.Loans {
		row := LoanBreakdown{
			LoanID:          l.ID,
			Bank:            l.Bank,
			Property:        aliases[l.PropertyID],
			PendingCapital:  l.PendingCapital,
			MonthlyPayment:  l.MonthlyPayment,
			RemainingMonths: l.RemainingMonths,
			InterestRate:    l.InterestRate,
			NextRevision:    l.NextRevision,
		}

		toPay := decimal.NewFromFloat(l.MonthlyPayment).Mul(decimal.NewFromInt(int64(l.RemainingMonths))).
			Sub(decimal.NewFromFloat(l.PendingCapital))
		if toPay.IsNegative() {
			toPay = decimal.Zero
		}
		row.InterestToPay = toPay.Round(2).InexactFloat64()

		var loanAmortized decimal.Decimal
		for _, a := range l.Amortizations {
			loanAmortized = loanAmortized.Add(decimal.NewFromFloat(a.Amount))
		}
		row.Amortized = loanAmortized.InexactFloat64()

		principal = principal.Add(decimal.NewFromFloat(l.Principal))
		pending = pending.Add(decimal.NewFromFloat(l.PendingCapital))
		payment = payment.Add(decimal.NewFromFloat(l.MonthlyPayment))
		interest = interest.Add(toPay)
		amortized = amortized.Add(loanAmortized)
		weighted = weighted.Add(decimal.NewFromFloat(l.PendingCapital).Mul(decimal.NewFromFloat(l.InterestRate)))

		if !l.NextRevision.IsZero() && (totals.NextRevision.IsZero() || l.NextRevision.Before(totals.NextRevision)) {
			totals.NextRevision = l.NextRevision
			totals.NextRevisionLoan = l.ID
		}

		rows = append(rows, row)
	}

	totals.Principal = principal.Round(2).InexactFloat64()
	totals.PendingCapital = pending.Round(2).InexactFloat64()
	totals.MonthlyPayment = payment.Round(2).InexactFloat64()
	totals.InterestToPay = interest.Round(2).InexactFloat64()
	totals.AmortizedToDate = amortized.Round(2).InexactFloat64()
	if pending.IsPositive() {
		totals.WeightedRate = weighted.Div(pending).Round(3).InexactFloat64()
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PendingCapital > rows[j].PendingCapital
	})

	return totals, rows
}
