package config

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Fiscal treatments, matching model.FiscalTreatment values.
const (
	TreatmentExpense = "gasto"
	TreatmentCapex   = "capex"
	TreatmentRC      = "rc"
)

// Category describes how expenses of a category are treated for tax purposes.
type Category struct {
	Name              string
	Treatment         string
	Deductible        bool
	AmortizationYears int // only for capex
}

type categoryVersion struct {
	EffectiveFrom time.Time
	Category      Category
}

// CategoryOverrides lets users change the treatment of specific categories.
type CategoryOverrides struct {
	Overrides map[string]CategoryOverride `toml:"overrides,omitempty" mapstructure:"overrides"`
}

// CategoryOverride holds per-category overrides.
type CategoryOverride struct {
	Treatment         *string `toml:"treatment,omitempty" mapstructure:"treatment"`
	Deductible        *bool   `toml:"deductible,omitempty" mapstructure:"deductible"`
	AmortizationYears *int    `toml:"amortization_years,omitempty" mapstructure:"amortization_years"`
}

// DefaultCategories is the built-in category catalogue.
var DefaultCategories = map[string]Category{
	"Suministros":       {Treatment: TreatmentExpense, Deductible: true},
	"Seguros":           {Treatment: TreatmentExpense, Deductible: true},
	"Comunidad":         {Treatment: TreatmentExpense, Deductible: true},
	"IBI":               {Treatment: TreatmentExpense, Deductible: true},
	"Gestoría":          {Treatment: TreatmentExpense, Deductible: true},
	"Intereses":         {Treatment: TreatmentExpense, Deductible: true},
	"Reparaciones":      {Treatment: TreatmentRC, Deductible: true},
	"Conservación":      {Treatment: TreatmentRC, Deductible: true},
	"Mejoras":           {Treatment: TreatmentCapex, Deductible: true, AmortizationYears: 10},
	"Mobiliario":        {Treatment: TreatmentCapex, Deductible: true, AmortizationYears: 10},
	"Electrodomésticos": {Treatment: TreatmentCapex, Deductible: true, AmortizationYears: 10},
	"Otros":             {Treatment: TreatmentExpense, Deductible: false},
}

// defaultCategoryHistory stores effective-dated treatments for each category.
// Entries must be sorted by EffectiveFrom ascending.
var defaultCategoryHistory = makeDefaultCategoryHistory(DefaultCategories)

func makeDefaultCategoryHistory(base map[string]Category) map[string][]categoryVersion {
	history := make(map[string][]categoryVersion, len(base))
	for name, c := range base {
		c.Name = name
		history[foldName(name)] = []categoryVersion{{Category: c}}
	}
	return history
}

func foldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// CategoryNames returns the catalogue names in alphabetical order.
func CategoryNames() []string {
	names := make([]string, 0, len(DefaultCategories))
	for name := range DefaultCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupCategory returns the current treatment for a category, ignoring case.
// Returns the zero Category and false if the category is unknown.
func LookupCategory(name string) (Category, bool) {
	return LookupCategoryAt(name, time.Now())
}

// LookupCategoryAt returns the treatment in force at the given date.
// If at is zero, the latest known entry is used.
func LookupCategoryAt(name string, at time.Time) (Category, bool) {
	versions, ok := defaultCategoryHistory[foldName(name)]
	if !ok || len(versions) == 0 {
		return Category{}, false
	}

	if at.IsZero() {
		return versions[len(versions)-1].Category, true
	}

	at = at.UTC()
	selected := versions[0].Category
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom.UTC()) {
			selected = v.Category
			continue
		}
		break
	}
	return selected, true
}

// ResolveCategory applies the config overrides on top of the catalogue entry
// in force at the given date. Unknown categories without overrides fall back
// to a deductible ordinary expense.
func (o CategoryOverrides) ResolveCategory(name string, at time.Time) Category {
	c, ok := LookupCategoryAt(name, at)
	if !ok {
		c = Category{Name: name, Treatment: TreatmentExpense, Deductible: true}
	}
	for key, ov := range o.Overrides {
		if foldName(key) != foldName(name) {
			continue
		}
		if ov.Treatment != nil {
			c.Treatment = *ov.Treatment
		}
		if ov.Deductible != nil {
			c.Deductible = *ov.Deductible
		}
		if ov.AmortizationYears != nil {
			c.AmortizationYears = *ov.AmortizationYears
		}
	}
	return c
}
