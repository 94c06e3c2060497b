package model

import "time"

// SummaryStats holds the top-level aggregate across the whole portfolio.
type SummaryStats struct {
	Properties      int
	Units           int
	OccupiedUnits   int
	OccupancyRate   float64
	MonthlyRent     float64
	MonthlyExpenses float64
	MonthlyDebt     float64
	NetMonthly      float64

	TotalBalance     float64
	BalanceDelta7    float64
	BalanceDelta30   float64
	AccountsAtRisk   int
	PendingCapital   float64
	PendingDocuments int
	PendingAmount    float64
	OpenAlerts       int
}

// PropertyStats holds metrics for a single property.
type PropertyStats struct {
	PropertyID      string
	Alias           string
	Status          string
	MonthlyRent     float64
	MonthlyExpenses float64
	MonthlyDebt     float64
	NetMonthly      float64
	PendingCapital  float64
	Documents       int
	DocumentsAmount float64
}

// AccountStats holds the treasury view of one account.
type AccountStats struct {
	AccountID string
	Name      string
	Bank      string
	Balance   float64
	Target    float64
	Delta7    float64
	Delta30   float64
	Health    Health
	Forecast  float64 // balance after applying predicted items
}

// MonthlyCashflow aggregates predicted items for one calendar month.
type MonthlyCashflow struct {
	Month    time.Time
	Inflows  float64
	Outflows float64
	Net      float64
	Items    int
}
