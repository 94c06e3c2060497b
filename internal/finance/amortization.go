// Package finance holds the loan and fiscal arithmetic shared by every ATLAS
// surface. French (constant-payment) amortization lives here and nowhere else.
package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/atlas/internal/model"
)

// ErrInvalidLoan is returned for non-positive principals or terms, negative
// rates, and payments that cannot cover the interest.
var ErrInvalidLoan = errors.New("invalid loan parameters")

// MonthlyRate converts an annual percentage rate (3.5 for 3.5%) to the
// monthly rate used by the annuity formula.
func MonthlyRate(annualRatePct float64) float64 {
	return annualRatePct / 12 / 100
}

// FrenchPayment returns the constant monthly payment that repays principal
// over months at annualRatePct:
//
//	payment = P·r·(1+r)^n / ((1+r)^n - 1)
//
// A zero rate degenerates to P/n. Invalid inputs return 0.
func FrenchPayment(principal, annualRatePct float64, months int) float64 {
	if principal <= 0 || months <= 0 || annualRatePct < 0 {
		return 0
	}
	r := MonthlyRate(annualRatePct)
	if r == 0 {
		return principal / float64(months)
	}
	f := math.Pow(1+r, float64(months))
	return principal * r * f / (f - 1)
}

// Amortization summarizes a French amortization plan.
type Amortization struct {
	Principal      float64
	AnnualRate     float64
	Months         int
	MonthlyPayment float64
	TotalPaid      float64
	TotalInterest  float64
	TAE            float64 // approximated, fees ignored
}

// CalculateFrenchAmortization computes the payment, totals and an
// approximate TAE ((total/P)^(1/n) - 1) × 12 × 100.
func CalculateFrenchAmortization(principal, annualRatePct float64, months int) (Amortization, error) {
	if principal <= 0 || months <= 0 || annualRatePct < 0 {
		return Amortization{}, fmt.Errorf("%w: principal=%.2f rate=%.3f months=%d",
			ErrInvalidLoan, principal, annualRatePct, months)
	}

	payment := FrenchPayment(principal, annualRatePct, months)
	total := payment * float64(months)

	return Amortization{
		Principal:      principal,
		AnnualRate:     annualRatePct,
		Months:         months,
		MonthlyPayment: payment,
		TotalPaid:      total,
		TotalInterest:  total - principal,
		TAE:            (math.Pow(total/principal, 1/float64(months)) - 1) * 12 * 100,
	}, nil
}

// Installment is one row of an amortization schedule, rounded to cents.
type Installment struct {
	Number    int
	Payment   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Balance   decimal.Decimal
}

// Schedule expands the plan into monthly installments. Interest is rounded to
// cents each month and the last installment absorbs the rounding residue so
// the balance ends at exactly zero.
func Schedule(principal, annualRatePct float64, months int) ([]Installment, error) {
	plan, err := CalculateFrenchAmortization(principal, annualRatePct, months)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromFloat(MonthlyRate(annualRatePct))
	payment := decimal.NewFromFloat(plan.MonthlyPayment).Round(2)
	balance := decimal.NewFromFloat(principal).Round(2)

	rows := make([]Installment, 0, months)
	for n := 1; n <= months; n++ {
		interest := balance.Mul(rate).Round(2)
		amort := payment.Sub(interest)
		if n == months || amort.GreaterThan(balance) {
			amort = balance
		}
		balance = balance.Sub(amort)
		rows = append(rows, Installment{
			Number:    n,
			Payment:   amort.Add(interest),
			Interest:  interest,
			Principal: amort,
			Balance:   balance,
		})
		if balance.IsZero() {
			break
		}
	}
	return rows, nil
}

// RemainingTerm returns the number of months a constant payment needs to
// repay pending at annualRatePct:
//
//	n = -ln(1 - r·P/A) / ln(1+r)
//
// rounded up to whole months.
func RemainingTerm(pending, annualRatePct, payment float64) (int, error) {
	if pending <= 0 {
		return 0, nil
	}
	if payment <= 0 || annualRatePct < 0 {
		return 0, fmt.Errorf("%w: payment=%.2f rate=%.3f", ErrInvalidLoan, payment, annualRatePct)
	}
	r := MonthlyRate(annualRatePct)
	if r == 0 {
		return int(math.Ceil(pending / payment)), nil
	}
	if r*pending >= payment {
		return 0, fmt.Errorf("%w: payment %.2f does not cover monthly interest %.2f",
			ErrInvalidLoan, payment, r*pending)
	}
	n := -math.Log(1-r*pending/payment) / math.Log(1+r)
	// Guard against 119.9999999 becoming 120 months plus one.
	return int(math.Ceil(n - 1e-9)), nil
}

// Repayment is the outcome of an early repayment.
type Repayment struct {
	PendingCapital  float64
	MonthlyPayment  float64
	RemainingMonths int
	InterestSaved   float64
}

// EarlyRepayment applies amount to a loan with the given pending capital,
// payment and term. ReduceTerm keeps the payment and shortens the term;
// ReducePayment keeps the term and lowers the payment. Pending capital never
// goes below zero.
func EarlyRepayment(loan model.Loan, amount float64, mode model.AmortizationMode) (Repayment, error) {
	if amount <= 0 {
		return Repayment{}, fmt.Errorf("%w: repayment amount %.2f", ErrInvalidLoan, amount)
	}

	pending := math.Max(0, loan.PendingCapital-amount)
	before := loan.MonthlyPayment*float64(loan.RemainingMonths) - loan.PendingCapital

	if pending == 0 {
		return Repayment{InterestSaved: math.Max(0, before)}, nil
	}

	out := Repayment{PendingCapital: pending}
	switch mode {
	case model.ReduceTerm:
		months, err := RemainingTerm(pending, loan.InterestRate, loan.MonthlyPayment)
		if err != nil {
			return Repayment{}, err
		}
		out.MonthlyPayment = loan.MonthlyPayment
		out.RemainingMonths = months
	case model.ReducePayment, "":
		if loan.RemainingMonths <= 0 {
			return Repayment{}, fmt.Errorf("%w: no remaining months", ErrInvalidLoan)
		}
		out.MonthlyPayment = FrenchPayment(pending, loan.InterestRate, loan.RemainingMonths)
		out.RemainingMonths = loan.RemainingMonths
	default:
		return Repayment{}, fmt.Errorf("unknown amortization mode %q", mode)
	}

	after := out.MonthlyPayment*float64(out.RemainingMonths) - pending
	out.InterestSaved = math.Max(0, before-after)
	return out, nil
}
