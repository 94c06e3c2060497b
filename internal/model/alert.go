package model

import "time"

// AlertType values.
const (
	AlertSweep           = "sweep"
	AlertPendingDocument = "pending_document"
	AlertLoanRevision    = "loan_revision"
	AlertManualReview    = "manual_review"
	AlertInfo            = "info"
)

// Severity of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a notice shown on the dashboard. The engine appends alerts
// without deduplication unless configured otherwise.
type Alert struct {
	ID        string        `json:"id" yaml:"id"`
	Type      string        `json:"type" yaml:"type"`
	Severity  Severity      `json:"severity" yaml:"severity"`
	Title     string        `json:"title" yaml:"title"`
	Message   string        `json:"message,omitempty" yaml:"message"`
	SourceID  string        `json:"sourceId,omitempty" yaml:"sourceId"`
	CreatedAt time.Time     `json:"createdAt" yaml:"createdAt"`
	Dismissed bool          `json:"dismissed" yaml:"dismissed"`
	Actions   []AlertAction `json:"actions,omitempty" yaml:"actions"`
}

// AlertAction is a button attached to an alert; Action is a dispatcher id.
type AlertAction struct {
	Label  string            `json:"label" yaml:"label"`
	Action string            `json:"action" yaml:"action"`
	Params map[string]string `json:"params,omitempty" yaml:"params"`
}

// PredictedItem kinds.
const (
	PredictedLoanPayment = "loan_payment"
	PredictedRent        = "rent"
)

// PredictedItem is a forecast cash movement generated by the rules engine.
type PredictedItem struct {
	ID        string    `json:"id" yaml:"id"`
	Date      time.Time `json:"date" yaml:"date"`
	Amount    float64   `json:"amount" yaml:"amount"`
	Kind      string    `json:"kind" yaml:"kind"`
	Concept   string    `json:"concept" yaml:"concept"`
	SourceID  string    `json:"sourceId" yaml:"sourceId"`
	AccountID string    `json:"accountId,omitempty" yaml:"accountId"`
}
