package finance

import (
	"errors"
	"math"
	"testing"

	"github.com/theirongolddev/atlas/internal/model"
)

func annuity(p, annual float64, n int) float64 {
	r := annual / 1200
	f := math.Pow(1+r, float64(n))
	return p * r * f / (f - 1)
}

func TestFrenchPaymentMatchesAnnuityFormula(t *testing.T) {
	tests := []struct {
		principal float64
		rate      float64
		months    int
	}{
		{100000, 3.5, 240},
		{250000, 2.1, 360},
		{15000, 7.25, 60},
		{1, 0.01, 1},
	}
	for _, tt := range tests {
		got := FrenchPayment(tt.principal, tt.rate, tt.months)
		want := annuity(tt.principal, tt.rate, tt.months)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("FrenchPayment(%.0f, %.2f, %d) = %.6f, want %.6f",
				tt.principal, tt.rate, tt.months, got, want)
		}
	}
}

func TestCalculateFrenchAmortizationReference(t *testing.T) {
	a, err := CalculateFrenchAmortization(100000, 3.5, 240)
	if err != nil {
		t.Fatalf("CalculateFrenchAmortization: %v", err)
	}
	want := annuity(100000, 3.5, 240)
	if math.Abs(a.MonthlyPayment-want) > 1e-9 {
		t.Fatalf("MonthlyPayment = %.6f, want %.6f", a.MonthlyPayment, want)
	}
	if a.MonthlyPayment < 579 || a.MonthlyPayment > 581 {
		t.Fatalf("MonthlyPayment = %.2f, want ~580", a.MonthlyPayment)
	}
	if math.Abs(a.TotalPaid-want*240) > 1e-6 {
		t.Fatalf("TotalPaid = %.2f, want %.2f", a.TotalPaid, want*240)
	}
	if math.Abs(a.TotalInterest-(a.TotalPaid-100000)) > 1e-6 {
		t.Fatalf("TotalInterest = %.2f, want %.2f", a.TotalInterest, a.TotalPaid-100000)
	}
	wantTAE := (math.Pow(a.TotalPaid/100000, 1.0/240) - 1) * 12 * 100
	if math.Abs(a.TAE-wantTAE) > 1e-9 {
		t.Fatalf("TAE = %.6f, want %.6f", a.TAE, wantTAE)
	}
}

func TestFrenchPaymentZeroRate(t *testing.T) {
	if got := FrenchPayment(12000, 0, 12); got != 1000 {
		t.Fatalf("zero-rate payment = %.2f, want 1000", got)
	}
}

func TestCalculateFrenchAmortizationRejectsInvalid(t *testing.T) {
	cases := []struct {
		p      float64
		rate   float64
		months int
	}{
		{0, 3, 120},
		{-1, 3, 120},
		{1000, -1, 120},
		{1000, 3, 0},
	}
	for _, c := range cases {
		if _, err := CalculateFrenchAmortization(c.p, c.rate, c.months); !errors.Is(err, ErrInvalidLoan) {
			t.Fatalf("CalculateFrenchAmortization(%v, %v, %d) err = %v, want ErrInvalidLoan", c.p, c.rate, c.months, err)
		}
	}
}

func TestScheduleEndsAtZero(t *testing.T) {
	rows, err := Schedule(100000, 3.5, 240)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(rows) != 240 {
		t.Fatalf("len(rows) = %d, want 240", len(rows))
	}
	last := rows[len(rows)-1]
	if !last.Balance.IsZero() {
		t.Fatalf("final balance = %s, want 0", last.Balance)
	}

	var repaid float64
	for _, r := range rows {
		repaid += r.Principal.InexactFloat64()
	}
	if math.Abs(repaid-100000) > 0.01 {
		t.Fatalf("principal repaid = %.2f, want 100000", repaid)
	}
	if rows[0].Interest.StringFixed(2) != "291.67" {
		t.Fatalf("first interest = %s, want 291.67", rows[0].Interest.StringFixed(2))
	}
}

func TestRemainingTermInvertsPayment(t *testing.T) {
	payment := FrenchPayment(100000, 3.5, 240)
	n, err := RemainingTerm(100000, 3.5, payment)
	if err != nil {
		t.Fatalf("RemainingTerm: %v", err)
	}
	if n != 240 {
		t.Fatalf("RemainingTerm = %d, want 240", n)
	}

	if _, err := RemainingTerm(100000, 3.5, 100); !errors.Is(err, ErrInvalidLoan) {
		t.Fatalf("payment below interest err = %v, want ErrInvalidLoan", err)
	}
}

func TestEarlyRepayment(t *testing.T) {
	loan := model.Loan{
		PendingCapital:  100000,
		InterestRate:    3.5,
		MonthlyPayment:  FrenchPayment(100000, 3.5, 240),
		RemainingMonths: 240,
	}

	byPayment, err := EarlyRepayment(loan, 20000, model.ReducePayment)
	if err != nil {
		t.Fatalf("EarlyRepayment(payment): %v", err)
	}
	if byPayment.RemainingMonths != 240 {
		t.Fatalf("RemainingMonths = %d, want 240", byPayment.RemainingMonths)
	}
	if want := annuity(80000, 3.5, 240); math.Abs(byPayment.MonthlyPayment-want) > 1e-9 {
		t.Fatalf("MonthlyPayment = %.4f, want %.4f", byPayment.MonthlyPayment, want)
	}

	byTerm, err := EarlyRepayment(loan, 20000, model.ReduceTerm)
	if err != nil {
		t.Fatalf("EarlyRepayment(term): %v", err)
	}
	if byTerm.RemainingMonths >= 240 {
		t.Fatalf("RemainingMonths = %d, want < 240", byTerm.RemainingMonths)
	}
	if byTerm.InterestSaved <= byPayment.InterestSaved {
		t.Fatalf("term reduction saved %.2f, payment reduction %.2f; want term > payment",
			byTerm.InterestSaved, byPayment.InterestSaved)
	}

	full, err := EarlyRepayment(loan, 150000, model.ReduceTerm)
	if err != nil {
		t.Fatalf("EarlyRepayment(full): %v", err)
	}
	if full.PendingCapital != 0 || full.RemainingMonths != 0 || full.MonthlyPayment != 0 {
		t.Fatalf("overpayment = %+v, want zeroed loan", full)
	}
}
