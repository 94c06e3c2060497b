package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/seed"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func demoState(t *testing.T) model.State {
	t.Helper()
	st, err := seed.Demo(testNow)
	require.NoError(t, err)
	return st
}

func newTestEngine(cfg Config) *Engine {
	e := New(cfg)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return e
}

func findDoc(t *testing.T, st model.State, id string) model.Document {
	t.Helper()
	i := st.DocumentIndex(id)
	require.GreaterOrEqual(t, i, 0, "document %s missing", id)
	return st.Documents[i]
}

func TestRunDoesNotModifyInput(t *testing.T) {
	st := demoState(t)
	before := st.Clone()

	_, report := newTestEngine(Config{}).Run(st, testNow)

	require.False(t, report.Empty())
	assert.Equal(t, before, st)
}

func TestRunOnDemoData(t *testing.T) {
	out, report := newTestEngine(Config{}).Run(demoState(t), testNow)

	assert.Equal(t, 4, report.Count(PassClassify))
	assert.Equal(t, 2, report.Count(PassLink))
	assert.Equal(t, 1, report.Count(PassPredict))
	assert.Equal(t, 2, report.Count(PassSweep))
	assert.Equal(t, 5, report.Count(PassAlerts))
	assert.Len(t, out.Alerts, 7)
	assert.Len(t, out.PredictedItems, 12)
}

func TestClassifyAppliesFirstMatchingRule(t *testing.T) {
	out, _ := newTestEngine(Config{}).Run(demoState(t), testNow)

	ib := findDoc(t, out, "doc-001")
	assert.Equal(t, "Suministros", ib.Category)
	assert.True(t, ib.IsDeductible)
	assert.True(t, ib.RuleApplied)
	assert.Equal(t, "prop-atico", ib.PropertyID, "auto resolves through the Iberdrola contract")

	agua := findDoc(t, out, "doc-002")
	assert.Equal(t, "prop-edificio", agua.PropertyID)

	mapfre := findDoc(t, out, "doc-003")
	assert.Equal(t, "Seguros", mapfre.Category)
	assert.Equal(t, "prop-local", mapfre.PropertyID)

	comunidad := findDoc(t, out, "doc-004")
	assert.Equal(t, "Comunidad", comunidad.Category)
	assert.Equal(t, "prop-edificio", comunidad.PropertyID, "rule without property keeps the existing one")

	fontaneria := findDoc(t, out, "doc-006")
	assert.False(t, fontaneria.RuleApplied)
	assert.Empty(t, fontaneria.Category)
}

func TestClassifyRuleOrder(t *testing.T) {
	st := model.State{
		Documents: []model.Document{{ID: "d1", Provider: "Endesa Energía", Status: model.StatusPending}},
		ProviderRules: []model.ProviderRule{
			{ID: "late", ProviderContains: "energía", Category: "Energía", Active: true, Order: 2},
			{ID: "early", ProviderContains: "ENDESA", Category: "Luz", Active: true, Order: 1},
			{ID: "off", ProviderContains: "endesa", Category: "Nada", Active: false, Order: 0},
			{ID: "empty", ProviderContains: "  ", Category: "Vacía", Active: true, Order: -1},
		},
	}

	for i := 0; i < 5; i++ {
		out, report := newTestEngine(Config{}).Run(st, testNow)
		require.Equal(t, 1, report.Count(PassClassify))
		assert.Equal(t, "Luz", out.Documents[0].Category)
		assert.Equal(t, []string{"d1", "early"}, report.Changes[0].IDs)
	}
}

func TestClassifyUnresolvedAutoKeepsProperty(t *testing.T) {
	st := model.State{
		Documents:     []model.Document{{ID: "d1", Provider: "Naturgy", PropertyID: "prop-x"}},
		ProviderRules: []model.ProviderRule{{ID: "r", ProviderContains: "naturgy", Category: "Gas", PropertyID: model.AutoProperty, Active: true}},
	}

	out, _ := newTestEngine(Config{}).Run(st, testNow)

	assert.Equal(t, "prop-x", out.Documents[0].PropertyID)
	assert.Equal(t, "Gas", out.Documents[0].Category)
}

func TestLinkSingleCandidate(t *testing.T) {
	out, report := newTestEngine(Config{}).Run(demoState(t), testNow)

	doc := findDoc(t, out, "doc-001")
	assert.Equal(t, model.StatusValidated, doc.Status)
	assert.Equal(t, "mov-001", doc.LinkedMovementID)
	mov := out.Movements[out.MovementIndex("mov-001")]
	assert.Equal(t, "doc-001", mov.LinkedDocumentID)

	var linked []Change
	for _, c := range report.Changes {
		if c.Kind == KindLinked {
			linked = append(linked, c)
		}
	}
	require.Len(t, linked, 1)
	assert.Equal(t, []string{"doc-001", "mov-001"}, linked[0].IDs)
}

func TestLinkAmbiguousNeedsManualReview(t *testing.T) {
	out, report := newTestEngine(Config{}).Run(demoState(t), testNow)

	doc := findDoc(t, out, "doc-004")
	assert.Equal(t, model.StatusPending, doc.Status)
	assert.Empty(t, doc.LinkedMovementID)
	assert.Empty(t, out.Movements[out.MovementIndex("mov-002")].LinkedDocumentID)
	assert.Empty(t, out.Movements[out.MovementIndex("mov-003")].LinkedDocumentID)

	var review *Change
	for i, c := range report.Changes {
		if c.Kind == KindManualReview {
			review = &report.Changes[i]
		}
	}
	require.NotNil(t, review)
	assert.ElementsMatch(t, []string{"doc-004", "mov-002", "mov-003"}, review.IDs)
}

func TestLinkRequiresExactAmountWithinWindow(t *testing.T) {
	st := model.State{
		Config: model.Config{MovementMatchingDays: 3},
		Documents: []model.Document{
			{ID: "near", Amount: 50, Date: day(2025, 5, 10), Status: model.StatusPending},
			{ID: "far", Amount: 70, Date: day(2025, 5, 10), Status: model.StatusPending},
		},
		Movements: []model.Movement{
			{ID: "m1", Amount: -50.01, Date: day(2025, 5, 10)},
			{ID: "m2", Amount: -70, Date: day(2025, 5, 14)},
		},
	}

	out, report := newTestEngine(Config{}).Run(st, testNow)

	assert.Zero(t, report.Count(PassLink))
	assert.Empty(t, out.Documents[0].LinkedMovementID)
	assert.Empty(t, out.Documents[1].LinkedMovementID)
}

func TestLinkWindowIgnoresTimeOfDay(t *testing.T) {
	st := model.State{
		Config: model.Config{MovementMatchingDays: 3},
		Documents: []model.Document{
			{ID: "doc", Amount: 80, Date: day(2025, 5, 10), Status: model.StatusPending},
		},
		Movements: []model.Movement{
			{ID: "late", Amount: -80, Date: time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC)},
		},
	}

	out, report := newTestEngine(Config{}).Run(st, testNow)

	assert.Equal(t, 1, report.Count(PassLink))
	assert.Equal(t, "late", out.Documents[0].LinkedMovementID)
}

func TestLinkConsumesMovement(t *testing.T) {
	st := model.State{
		Documents: []model.Document{
			{ID: "a", Amount: 30, Date: day(2025, 5, 10), Status: model.StatusPending},
			{ID: "b", Amount: 30, Date: day(2025, 5, 11), Status: model.StatusPending},
		},
		Movements: []model.Movement{{ID: "m", Amount: -30, Date: day(2025, 5, 10)}},
	}

	out, report := newTestEngine(Config{}).Run(st, testNow)

	assert.Equal(t, 1, report.Count(PassLink))
	assert.Equal(t, "m", out.Documents[0].LinkedMovementID)
	assert.Empty(t, out.Documents[1].LinkedMovementID)
}

func TestPredictOverwritesItems(t *testing.T) {
	st := demoState(t)
	st.PredictedItems = []model.PredictedItem{{ID: "manual", Amount: 999, Kind: model.PredictedRent}}

	out, _ := newTestEngine(Config{}).Run(st, testNow)

	require.Len(t, out.PredictedItems, 12)
	var loanDates []time.Time
	var rent float64
	for _, it := range out.PredictedItems {
		assert.NotEqual(t, "manual", it.ID)
		switch it.Kind {
		case model.PredictedLoanPayment:
			assert.Equal(t, "loan-atico", it.SourceID)
			assert.Equal(t, -836.42, it.Amount)
			loanDates = append(loanDates, it.Date)
		case model.PredictedRent:
			if it.SourceID == "prop-edificio" {
				rent = it.Amount
			}
		}
	}
	assert.Equal(t, []time.Time{day(2025, 6, 20), day(2025, 7, 20), day(2025, 8, 20)}, loanDates)
	assert.Equal(t, 1550.0, rent)

	again, _ := newTestEngine(Config{}).Run(out, testNow)
	assert.Equal(t, out.PredictedItems, again.PredictedItems, "ids are deterministic")
}

func TestPredictAdvancesPastRevision(t *testing.T) {
	st := model.State{Loans: []model.Loan{{
		ID: "l", PendingCapital: 1000, MonthlyPayment: 100, NextRevision: day(2025, 3, 15),
	}}}

	out, _ := newTestEngine(Config{HorizonDays: 50}).Run(st, testNow)

	require.Len(t, out.PredictedItems, 2)
	assert.Equal(t, day(2025, 6, 15), out.PredictedItems[0].Date)
	assert.Equal(t, day(2025, 7, 15), out.PredictedItems[1].Date)
}

func TestSweepSuggestions(t *testing.T) {
	out, _ := newTestEngine(Config{}).Run(demoState(t), testNow)

	var sweeps []model.Alert
	for _, a := range out.Alerts {
		if a.Type == model.AlertSweep {
			sweeps = append(sweeps, a)
		}
	}
	require.Len(t, sweeps, 2)

	assert.Equal(t, "acc-atico", sweeps[0].SourceID)
	assert.Equal(t, model.SeverityWarning, sweeps[0].Severity)
	require.NotEmpty(t, sweeps[0].Actions)
	exec := sweeps[0].Actions[0]
	assert.Equal(t, "sweep:execute", exec.Action)
	assert.Equal(t, "acc-hub", exec.Params["from"])
	assert.Equal(t, "acc-atico", exec.Params["to"])
	assert.Equal(t, "2149.90", exec.Params["amount"])

	assert.Equal(t, "acc-edificio", sweeps[1].SourceID)
	assert.Equal(t, model.SeverityCritical, sweeps[1].Severity)
}

func TestSweepDisabledOrInsufficient(t *testing.T) {
	st := demoState(t)
	st.Config.Sweep.Enabled = false
	_, report := newTestEngine(Config{}).Run(st, testNow)
	assert.Zero(t, report.Count(PassSweep))

	st = demoState(t)
	st.Accounts[st.AccountIndex("acc-hub")].BalanceToday = 31000
	out, report := newTestEngine(Config{}).Run(st, testNow)
	assert.Zero(t, report.Count(PassSweep))
	for _, a := range out.Alerts {
		assert.NotEqual(t, model.AlertSweep, a.Type)
	}
}

func TestStateAlerts(t *testing.T) {
	out, _ := newTestEngine(Config{}).Run(demoState(t), testNow)

	pending := map[string]bool{}
	var revisions []model.Alert
	for _, a := range out.Alerts {
		switch a.Type {
		case model.AlertPendingDocument:
			pending[a.SourceID] = true
		case model.AlertLoanRevision:
			revisions = append(revisions, a)
		}
	}
	assert.Equal(t, map[string]bool{"doc-002": true, "doc-003": true, "doc-004": true, "doc-006": true}, pending)
	require.Len(t, revisions, 1)
	assert.Equal(t, "loan-atico", revisions[0].SourceID)
	assert.Contains(t, revisions[0].Title, "19 días")
}

func TestRerunDuplicatesAlerts(t *testing.T) {
	e := newTestEngine(Config{})
	first, _ := e.Run(demoState(t), testNow)
	second, report := e.Run(first, testNow)

	assert.Len(t, second.Alerts, 2*len(first.Alerts))
	assert.Equal(t, 2, report.Count(PassSweep))
	assert.Zero(t, report.Count(PassClassify))
}

func TestRerunWithDedupe(t *testing.T) {
	e := newTestEngine(Config{DedupeAlerts: true})
	first, _ := e.Run(demoState(t), testNow)
	second, report := e.Run(first, testNow)

	assert.Len(t, second.Alerts, len(first.Alerts))
	assert.Zero(t, report.Count(PassSweep))
	assert.Zero(t, report.Count(PassAlerts))

	// Dismissed alerts no longer block a new one.
	second.Alerts[0].Dismissed = true
	third, _ := e.Run(second, testNow)
	assert.Len(t, third.Alerts, len(second.Alerts)+1)
}

func TestSuggest(t *testing.T) {
	st := model.State{Documents: []model.Document{
		{ID: "c1", Provider: "IBERDROLA CLIENTES", Category: "Suministros", IsDeductible: true, PropertyID: "p1"},
		{ID: "u1", Provider: "Iberdrola  Cliente"},
		{ID: "u2", Provider: "IBERDROLA CLIENTE"},
		{ID: "u3", Provider: "Fontanería Ruiz"},
	}}

	got := Suggest(st)

	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "iberdrola cliente", s.ProviderContains)
	assert.Equal(t, "Suministros", s.Category)
	assert.True(t, s.IsDeductible)
	assert.Equal(t, "IBERDROLA CLIENTES", s.BasedOn)
	assert.Equal(t, []string{"u1", "u2"}, s.DocumentIDs)
	assert.Less(t, s.Distance, maxProviderDistance)

	rule := s.Rule("r-new", 9)
	assert.True(t, rule.Active)
	assert.Equal(t, 9, rule.Order)
}

func TestSuggestedRuleClassifiesItsDocuments(t *testing.T) {
	st := model.State{Documents: []model.Document{
		{ID: "c1", Provider: "STRASSE BAU", Category: "Reparaciones", IsDeductible: true},
		{ID: "u1", Provider: "Straße Bau", Amount: 10, Status: model.StatusPending},
		{ID: "u2", Provider: "strasse  bau", Amount: 20, Status: model.StatusPending},
	}}

	got := Suggest(st)
	require.Len(t, got, 1)
	assert.Equal(t, "strasse bau", got[0].ProviderContains)
	assert.Equal(t, []string{"u1", "u2"}, got[0].DocumentIDs)
	assert.Zero(t, got[0].Distance)

	st.ProviderRules = []model.ProviderRule{got[0].Rule("r-1", 1)}
	out, _ := newTestEngine(Config{}).Run(st, testNow)
	assert.Equal(t, "Reparaciones", findDoc(t, out, "u1").Category)
	assert.Equal(t, "Reparaciones", findDoc(t, out, "u2").Category)
}

func TestReportByPass(t *testing.T) {
	r := Report{Changes: []Change{{Pass: PassLink}, {Pass: PassLink}, {Pass: PassAlerts}}}
	assert.Equal(t, map[string]int{"link": 2, "alerts": 1}, r.ByPass())
	assert.False(t, r.Empty())
}
