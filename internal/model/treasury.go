package model

import "time"

// Health classifies an account balance against its target.
type Health string

const (
	HealthOK       Health = "ok"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

// Account is a treasury account. Balances are snapshots; there is no bank linkage.
type Account struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Bank          string  `json:"bank" yaml:"bank"`
	IBAN          string  `json:"iban,omitempty" yaml:"iban"`
	BalanceToday  float64 `json:"balanceToday" yaml:"balanceToday"`
	BalanceT7     float64 `json:"balanceT7" yaml:"balanceT7"`
	BalanceT30    float64 `json:"balanceT30" yaml:"balanceT30"`
	TargetBalance float64 `json:"targetBalance" yaml:"targetBalance"`
	Health        Health  `json:"health" yaml:"health"`
	IsHub         bool    `json:"isHub,omitempty" yaml:"isHub"`
}

// Shortfall returns how far the account is below its target, or zero.
func (a Account) Shortfall() float64 {
	if a.BalanceToday >= a.TargetBalance {
		return 0
	}
	return a.TargetBalance - a.BalanceToday
}

// Surplus returns how far the account is above its target, or zero.
func (a Account) Surplus() float64 {
	if a.BalanceToday <= a.TargetBalance {
		return 0
	}
	return a.BalanceToday - a.TargetBalance
}

// Movement is a bank movement. Expenses are negative.
type Movement struct {
	ID               string    `json:"id" yaml:"id"`
	Date             time.Time `json:"date" yaml:"date"`
	Amount           float64   `json:"amount" yaml:"amount"`
	Concept          string    `json:"concept" yaml:"concept"`
	AccountID        string    `json:"accountId" yaml:"accountId"`
	PropertyID       string    `json:"propertyId,omitempty" yaml:"propertyId"`
	LinkedDocumentID string    `json:"linkedDocumentId,omitempty" yaml:"linkedDocumentId"`
}
