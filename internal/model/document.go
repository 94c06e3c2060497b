package model

import "time"

// Document status values.
const (
	StatusPending   = "Pendiente"
	StatusValidated = "Validada"
	StatusReview    = "Revisar"
)

// Document source values.
const (
	SourceSeed   = "seed"
	SourceInbox  = "inbox"
	SourceManual = "manual"
)

// FiscalTreatment decides how a document's amount is deducted.
type FiscalTreatment string

const (
	TreatmentExpense FiscalTreatment = "gasto"
	TreatmentCapex   FiscalTreatment = "capex"
	TreatmentRC      FiscalTreatment = "rc"
)

// Document is an invoice or receipt. Almost every action touches it.
type Document struct {
	ID                string          `json:"id" yaml:"id"`
	Provider          string          `json:"provider" yaml:"provider"`
	Concept           string          `json:"concept,omitempty" yaml:"concept"`
	Amount            float64         `json:"amount" yaml:"amount"`
	Date              time.Time       `json:"date" yaml:"date"`
	Category          string          `json:"category,omitempty" yaml:"category"`
	PropertyID        string          `json:"propertyId,omitempty" yaml:"propertyId"`
	Status            string          `json:"status" yaml:"status"`
	IsDeductible      bool            `json:"isDeductible" yaml:"isDeductible"`
	FiscalTreatment   FiscalTreatment `json:"fiscalTreatment,omitempty" yaml:"fiscalTreatment"`
	AmortizationYears int             `json:"amortizationYears,omitempty" yaml:"amortizationYears"`
	RuleApplied       bool            `json:"ruleApplied" yaml:"ruleApplied"`
	LinkedMovementID  string          `json:"linkedMovementId,omitempty" yaml:"linkedMovementId"`
	Source            string          `json:"source,omitempty" yaml:"source"`
	OCRConfidence     float64         `json:"ocrConfidence,omitempty" yaml:"ocrConfidence"`
}

// Inbox entry status values.
const (
	InboxPending   = "pendiente"
	InboxProcessed = "procesado"
	InboxError     = "error"
)

// InboxEntry is a received file waiting to become a Document.
type InboxEntry struct {
	ID         string    `json:"id" yaml:"id"`
	FileName   string    `json:"fileName" yaml:"fileName"`
	Path       string    `json:"path,omitempty" yaml:"path"`
	ReceivedAt time.Time `json:"receivedAt" yaml:"receivedAt"`
	Status     string    `json:"status" yaml:"status"`
	DocumentID string    `json:"documentId,omitempty" yaml:"documentId"`
}

// AutoProperty makes a rule resolve the property through contract lookup.
const AutoProperty = "auto"

// ProviderRule classifies documents whose provider contains ProviderContains.
// Active rules are evaluated by ascending Order; the first match wins.
type ProviderRule struct {
	ID               string `json:"id" yaml:"id"`
	ProviderContains string `json:"providerContains" yaml:"providerContains"`
	Category         string `json:"category" yaml:"category"`
	IsDeductible     bool   `json:"isDeductible" yaml:"isDeductible"`
	PropertyID       string `json:"propertyId,omitempty" yaml:"propertyId"`
	Active           bool   `json:"active" yaml:"active"`
	Order            int    `json:"order" yaml:"order"`
}
