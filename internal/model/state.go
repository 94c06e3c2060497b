// Package model defines the ATLAS state document and its entities.
package model

import "time"

// State is the single document the store owns. Every entity lives in one of
// its slices; nothing enforces references between them.
type State struct {
	Accounts       []Account       `json:"accounts" yaml:"accounts"`
	Properties     []Property      `json:"properties" yaml:"properties"`
	Loans          []Loan          `json:"loans" yaml:"loans"`
	Contracts      []Contract      `json:"contracts" yaml:"contracts"`
	Documents      []Document      `json:"documents" yaml:"documents"`
	Inbox          []InboxEntry    `json:"inbox" yaml:"inbox"`
	Movements      []Movement      `json:"movements" yaml:"movements"`
	Alerts         []Alert         `json:"alerts" yaml:"alerts"`
	ProviderRules  []ProviderRule  `json:"providerRules" yaml:"providerRules"`
	PredictedItems []PredictedItem `json:"predictedItems" yaml:"predictedItems"`
	Config         Config          `json:"config" yaml:"config"`
	LastUpdate     time.Time       `json:"lastUpdate" yaml:"lastUpdate"`
}

// Config holds the user-editable settings stored inside the document.
type Config struct {
	MovementMatchingDays int         `json:"movementMatchingDays" yaml:"movementMatchingDays"`
	Sweep                SweepConfig `json:"sweep" yaml:"sweep"`
}

// SweepConfig selects the hub account that funds sweep suggestions.
type SweepConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	HubAccountID string `json:"hubAccountId" yaml:"hubAccountId"`
}

// Clone returns a copy of s whose slices (including nested ones) can be
// modified without affecting s.
func (s State) Clone() State {
	c := s
	c.Accounts = cloneSlice(s.Accounts)
	c.Properties = make([]Property, len(s.Properties))
	for i, p := range s.Properties {
		p.Units = cloneSlice(p.Units)
		c.Properties[i] = p
	}
	c.Loans = make([]Loan, len(s.Loans))
	for i, l := range s.Loans {
		l.Amortizations = cloneSlice(l.Amortizations)
		c.Loans[i] = l
	}
	c.Contracts = cloneSlice(s.Contracts)
	c.Documents = cloneSlice(s.Documents)
	c.Inbox = cloneSlice(s.Inbox)
	c.Movements = cloneSlice(s.Movements)
	c.Alerts = make([]Alert, len(s.Alerts))
	for i, a := range s.Alerts {
		a.Actions = cloneActions(a.Actions)
		c.Alerts[i] = a
	}
	c.ProviderRules = cloneSlice(s.ProviderRules)
	c.PredictedItems = cloneSlice(s.PredictedItems)
	return c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneActions(in []AlertAction) []AlertAction {
	if in == nil {
		return nil
	}
	out := make([]AlertAction, len(in))
	for i, a := range in {
		if a.Params != nil {
			params := make(map[string]string, len(a.Params))
			for k, v := range a.Params {
				params[k] = v
			}
			a.Params = params
		}
		out[i] = a
	}
	return out
}

// Lookups return the index of the entity with the given id, or -1.

func (s State) AccountIndex(id string) int {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) PropertyIndex(id string) int {
	for i := range s.Properties {
		if s.Properties[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) LoanIndex(id string) int {
	for i := range s.Loans {
		if s.Loans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) DocumentIndex(id string) int {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) MovementIndex(id string) int {
	for i := range s.Movements {
		if s.Movements[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) AlertIndex(id string) int {
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) RuleIndex(id string) int {
	for i := range s.ProviderRules {
		if s.ProviderRules[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) InboxIndex(id string) int {
	for i := range s.Inbox {
		if s.Inbox[i].ID == id {
			return i
		}
	}
	return -1
}
