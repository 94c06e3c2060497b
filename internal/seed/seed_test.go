package seed

import (
	"testing"
	"time"

	"github.com/theirongolddev/atlas/internal/model"
)

func TestDemoRebasesDates(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	st, err := Demo(now)
	if err != nil {
		t.Fatalf("Demo: %v", err)
	}
	if len(st.Accounts) == 0 || len(st.Documents) == 0 || len(st.ProviderRules) == 0 {
		t.Fatalf("demo dataset is missing entities: %d accounts, %d documents, %d rules",
			len(st.Accounts), len(st.Documents), len(st.ProviderRules))
	}

	// doc-001 is dated four days before the anchor.
	idx := st.DocumentIndex("doc-001")
	if idx < 0 {
		t.Fatal("doc-001 not found")
	}
	want := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if !st.Documents[idx].Date.Equal(want) {
		t.Fatalf("doc-001 date = %s, want %s", st.Documents[idx].Date, want)
	}
	if st.Config.MovementMatchingDays != 5 {
		t.Fatalf("MovementMatchingDays = %d, want 5", st.Config.MovementMatchingDays)
	}
}

func TestDemoMultiUnitRent(t *testing.T) {
	st := InitialState(time.Now())
	idx := st.PropertyIndex("prop-edificio")
	if idx < 0 {
		t.Fatal("prop-edificio not found")
	}
	p := st.Properties[idx]
	if got := p.EffectiveRent(); got != 1550 {
		t.Fatalf("EffectiveRent = %.2f, want 1550", got)
	}
	if !p.Occupied() {
		t.Fatal("multi-unit property with rented units should be occupied")
	}
	if st.Properties[st.PropertyIndex("prop-garaje")].Status != model.PropertyVacant {
		t.Fatal("garage should be vacant")
	}
}
