package model

import "time"

// PropertyStatus values.
const (
	PropertyRented     = "Alquilado"
	PropertyVacant     = "Vacío"
	PropertyRenovation = "Reforma"
)

// Property is a real-estate asset. Multi-unit properties carry Units, whose
// rents replace MonthlyRent.
type Property struct {
	ID              string  `json:"id" yaml:"id"`
	Alias           string  `json:"alias" yaml:"alias"`
	Address         string  `json:"address" yaml:"address"`
	MonthlyRent     float64 `json:"monthlyRent" yaml:"monthlyRent"`
	MonthlyExpenses float64 `json:"monthlyExpenses" yaml:"monthlyExpenses"`
	Status          string  `json:"status" yaml:"status"`
	AccountID       string  `json:"accountId,omitempty" yaml:"accountId"`
	Units           []Unit  `json:"units,omitempty" yaml:"units"`
}

// Unit is a rentable unit of a multi-unit property.
type Unit struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	MonthlyRent float64 `json:"monthlyRent" yaml:"monthlyRent"`
	Status      string  `json:"status" yaml:"status"`
	Tenant      string  `json:"tenant,omitempty" yaml:"tenant"`
}

// Occupied reports whether the property currently produces rent.
func (p Property) Occupied() bool {
	if len(p.Units) > 0 {
		for _, u := range p.Units {
			if u.Status == PropertyRented {
				return true
			}
		}
		return false
	}
	return p.Status == PropertyRented
}

// EffectiveRent is the monthly rent actually collected: the sum of occupied
// units for multi-unit properties, MonthlyRent otherwise.
func (p Property) EffectiveRent() float64 {
	if len(p.Units) == 0 {
		if p.Status != PropertyRented {
			return 0
		}
		return p.MonthlyRent
	}
	var total float64
	for _, u := range p.Units {
		if u.Status == PropertyRented {
			total += u.MonthlyRent
		}
	}
	return total
}

// AmortizationMode selects what an early repayment reduces.
type AmortizationMode string

const (
	ReduceTerm    AmortizationMode = "term"
	ReducePayment AmortizationMode = "payment"
)

// Amortization records an early repayment applied to a loan.
type Amortization struct {
	Date   time.Time        `json:"date" yaml:"date"`
	Amount float64          `json:"amount" yaml:"amount"`
	Mode   AmortizationMode `json:"mode" yaml:"mode"`
}

// Loan is a mortgage attached to a property. The amortization schedule is
// not stored; it is recomputed on demand.
type Loan struct {
	ID              string         `json:"id" yaml:"id"`
	PropertyID      string         `json:"propertyId" yaml:"propertyId"`
	Bank            string         `json:"bank" yaml:"bank"`
	Principal       float64        `json:"principal" yaml:"principal"`
	PendingCapital  float64        `json:"pendingCapital" yaml:"pendingCapital"`
	InterestRate    float64        `json:"interestRate" yaml:"interestRate"`
	MonthlyPayment  float64        `json:"monthlyPayment" yaml:"monthlyPayment"`
	RemainingMonths int            `json:"remainingMonths" yaml:"remainingMonths"`
	NextRevision    time.Time      `json:"nextRevision" yaml:"nextRevision"`
	AccountID       string         `json:"accountId,omitempty" yaml:"accountId"`
	Amortizations   []Amortization `json:"amortizations,omitempty" yaml:"amortizations"`
}

// Contract ties a utility or service provider to a property. Rules with the
// "auto" property token resolve through it.
type Contract struct {
	ID         string `json:"id" yaml:"id"`
	PropertyID string `json:"propertyId" yaml:"propertyId"`
	Provider   string `json:"provider" yaml:"provider"`
	Kind       string `json:"kind" yaml:"kind"`
	Reference  string `json:"reference,omitempty" yaml:"reference"`
}
