package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/finance"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/rules"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func newDemoStore(t *testing.T, opts ...Option) (*Store, *Memory) {
	t.Helper()
	mem := &Memory{}
	return New(mem, append([]Option{WithClock(clock)}, opts...)...), mem
}

func TestNewFallsBackToDemo(t *testing.T) {
	s, _ := newDemoStore(t)
	st := s.State()
	assert.Len(t, st.Accounts, 4)
	assert.Equal(t, "acc-hub", st.Config.Sweep.HubAccountID)

	broken := &Memory{LoadErr: errors.New("disk gone")}
	assert.Len(t, New(broken, WithClock(clock)).State().Accounts, 4)

	garbage := NewMemory([]byte("{not json"))
	assert.Len(t, New(garbage, WithClock(clock)).State().Accounts, 4)
}

func TestNewMergesSavedStateOntoDefaults(t *testing.T) {
	mem := NewMemory([]byte(`{"providerRules":[{"id":"only","providerContains":"x","active":true}]}`))
	st := New(mem, WithClock(clock)).State()

	require.Len(t, st.ProviderRules, 1)
	assert.Equal(t, "only", st.ProviderRules[0].ID)
	assert.Len(t, st.Accounts, 4, "missing keys keep demo defaults")
}

func TestReloadAfterDeleteKeepsRecordsIntact(t *testing.T) {
	s, mem := newDemoStore(t)
	before, ok := findDocument(s.State(), "doc-006")
	require.True(t, ok)

	require.NoError(t, s.DeleteDocument("doc-001"))

	st := New(mem, WithClock(clock)).State()
	_, ok = findDocument(st, "doc-001")
	assert.False(t, ok)
	after, ok := findDocument(st, "doc-006")
	require.True(t, ok)
	assert.True(t, before.Date.Equal(after.Date))
	after.Date = before.Date
	assert.Equal(t, before, after)
	assert.Empty(t, after.LinkedMovementID)
	assert.Zero(t, after.AmortizationYears)
}

func TestReloadKeepsDefaultConfigFields(t *testing.T) {
	mem := NewMemory([]byte(`{"config":{"sweep":{"enabled":false}}}`))
	st := New(mem, WithClock(clock)).State()

	assert.False(t, st.Config.Sweep.Enabled)
	assert.Equal(t, "acc-hub", st.Config.Sweep.HubAccountID)
	assert.Len(t, st.Documents, 6)
}

func findDocument(st model.State, id string) (model.Document, bool) {
	for _, d := range st.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return model.Document{}, false
}

func TestUpdateStampsPersistsAndNotifies(t *testing.T) {
	bus := events.NewBus(10)
	s, mem := newDemoStore(t, WithBus(bus))

	var order []string
	unsubA := s.Subscribe(func(st model.State) {
		order = append(order, "a")
		assert.Equal(t, "Nuevo", st.Accounts[0].Name)
	})
	s.Subscribe(func(model.State) {
		order = append(order, "b")
		_ = s.State() // listeners may read the store
	})

	s.Update(func(st *model.State) { st.Accounts[0].Name = "Nuevo" })

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, mem.Saves())
	assert.Equal(t, testNow, s.State().LastUpdate)
	assert.Equal(t, int64(1), s.Revision())

	recent := bus.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, events.KindStateChanged, recent[0].Kind)
	assert.Equal(t, int64(1), recent[0].State.Revision)

	unsubA()
	unsubA()
	s.Update(func(st *model.State) {})
	assert.Equal(t, []string{"a", "b", "b"}, order)

	var saved model.State
	data, err := mem.Load()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "Nuevo", saved.Accounts[0].Name)
}

func TestUpdateIgnoresSaveErrors(t *testing.T) {
	mem := &Memory{SaveErr: errors.New("quota exceeded")}
	s := New(mem, WithClock(clock))

	calls := 0
	s.Subscribe(func(model.State) { calls++ })
	s.Update(func(st *model.State) { st.Config.MovementMatchingDays = 9 })

	assert.Equal(t, 1, calls)
	assert.Equal(t, 9, s.State().Config.MovementMatchingDays)
}

func TestStateReturnsCopy(t *testing.T) {
	s, _ := newDemoStore(t)
	st := s.State()
	st.Documents[0].Amount = 1
	st.Properties[2].Units[0].MonthlyRent = 1

	fresh := s.State()
	assert.NotEqual(t, 1.0, fresh.Documents[0].Amount)
	assert.NotEqual(t, 1.0, fresh.Properties[2].Units[0].MonthlyRent)
}

func TestAddAmortizationClampsAtZero(t *testing.T) {
	s, _ := newDemoStore(t)

	loan, err := s.AddAmortization("loan-atico", 500000)
	require.NoError(t, err)
	assert.Zero(t, loan.PendingCapital)
	assert.Zero(t, loan.MonthlyPayment)
	require.Len(t, loan.Amortizations, 1)
	assert.Equal(t, 500000.0, loan.Amortizations[0].Amount)
}

func TestAddAmortizationRecomputesPayment(t *testing.T) {
	s, _ := newDemoStore(t)

	loan, err := s.AddAmortization("loan-atico", 10000)
	require.NoError(t, err)
	assert.InDelta(t, 132350.77, loan.PendingCapital, 1e-6)
	assert.Equal(t, 208, loan.RemainingMonths)
	assert.InDelta(t, finance.FrenchPayment(132350.77, 2.85, 208), loan.MonthlyPayment, 1e-9)
	assert.Less(t, loan.MonthlyPayment, 836.42)
}

func TestAddAmortizationErrors(t *testing.T) {
	s, mem := newDemoStore(t)

	_, err := s.AddAmortization("loan-atico", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.AddAmortization("nope", 100)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, mem.Saves(), "failed helpers commit nothing")
}

func TestAmortizeLoanReduceTerm(t *testing.T) {
	s, _ := newDemoStore(t)

	rep, err := s.AmortizeLoan("loan-atico", 20000, model.ReduceTerm)
	require.NoError(t, err)
	assert.Less(t, rep.RemainingMonths, 208)

	loan := s.State().Loans[0]
	assert.Equal(t, 836.42, loan.MonthlyPayment)
	assert.Equal(t, rep.RemainingMonths, loan.RemainingMonths)
	assert.Equal(t, model.ReduceTerm, loan.Amortizations[0].Mode)
}

func TestDocumentHelpers(t *testing.T) {
	s, _ := newDemoStore(t)

	doc, err := s.AddDocument(model.Document{Provider: "Endesa", Amount: 40})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, model.SourceManual, doc.Source)
	assert.Equal(t, model.StatusPending, doc.Status)

	_, err = s.AddDocument(model.Document{Provider: "Cero"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	require.NoError(t, s.UpdateDocument(doc.ID, func(d *model.Document) { d.Category = "Luz" }))
	st := s.State()
	assert.Equal(t, "Luz", st.Documents[st.DocumentIndex(doc.ID)].Category)

	require.NoError(t, s.DeleteDocument("doc-005"))
	st = s.State()
	assert.Equal(t, -1, st.DocumentIndex("doc-005"))
	assert.Empty(t, st.Movements[st.MovementIndex("mov-005")].LinkedDocumentID)

	assert.ErrorIs(t, s.DeleteDocument("doc-005"), ErrNotFound)
	assert.ErrorIs(t, s.UpdateDocument("missing", func(*model.Document) {}), ErrNotFound)
}

func TestRuleHelpers(t *testing.T) {
	s, _ := newDemoStore(t)

	r, err := s.AddProviderRule(model.ProviderRule{ProviderContains: "endesa", Category: "Luz", Active: true})
	require.NoError(t, err)
	assert.Equal(t, 6, r.Order)

	require.NoError(t, s.UpdateProviderRule(r.ID, func(pr *model.ProviderRule) { pr.Active = false }))
	st := s.State()
	assert.False(t, st.ProviderRules[st.RuleIndex(r.ID)].Active)

	require.NoError(t, s.DeleteProviderRule(r.ID))
	assert.ErrorIs(t, s.DeleteProviderRule(r.ID), ErrNotFound)
}

func TestAlertHelpers(t *testing.T) {
	s, _ := newDemoStore(t)

	a, err := s.AddAlert(model.Alert{Type: model.AlertInfo, Title: "hola"})
	require.NoError(t, err)
	assert.Equal(t, testNow, a.CreatedAt)
	assert.Equal(t, model.SeverityInfo, a.Severity)

	require.NoError(t, s.DismissAlert(a.ID))
	assert.True(t, s.State().Alerts[0].Dismissed)
	assert.ErrorIs(t, s.DismissAlert("nope"), ErrNotFound)
}

func TestSweepHelpers(t *testing.T) {
	s, _ := newDemoStore(t)

	assert.ErrorIs(t, s.UpdateSweepConfig(model.SweepConfig{Enabled: true, HubAccountID: "nope"}), ErrNotFound)
	assert.ErrorIs(t, s.ExecuteSweep("acc-hub", "acc-edificio", 0), ErrInvalidAmount)

	require.NoError(t, s.ExecuteSweep("acc-hub", "acc-edificio", 3880))
	st := s.State()
	hub := st.Accounts[st.AccountIndex("acc-hub")]
	edificio := st.Accounts[st.AccountIndex("acc-edificio")]
	assert.InDelta(t, 44370.40, hub.BalanceToday, 1e-6)
	assert.InDelta(t, 4000, edificio.BalanceToday, 1e-6)
	assert.Equal(t, model.HealthOK, edificio.Health)
	assert.Len(t, st.Movements, 7)

	require.NoError(t, s.UpdateSweepConfig(model.SweepConfig{Enabled: true, HubAccountID: "acc-local"}))
	st = s.State()
	assert.True(t, st.Accounts[st.AccountIndex("acc-local")].IsHub)
	assert.False(t, st.Accounts[st.AccountIndex("acc-hub")].IsHub)
}

func TestAccountHealth(t *testing.T) {
	tests := []struct {
		balance float64
		want    model.Health
	}{
		{1000, model.HealthOK},
		{600, model.HealthWarning},
		{500, model.HealthWarning},
		{100, model.HealthCritical},
	}
	for _, tt := range tests {
		got := AccountHealth(model.Account{BalanceToday: tt.balance, TargetBalance: 1000})
		if got != tt.want {
			t.Errorf("AccountHealth(%.0f) = %s, want %s", tt.balance, got, tt.want)
		}
	}
}

func TestInboxHelpers(t *testing.T) {
	s, _ := newDemoStore(t)

	e, err := s.AddInboxEntry(model.InboxEntry{FileName: "f.pdf"})
	require.NoError(t, err)
	assert.Equal(t, model.InboxPending, e.Status)

	doc, err := s.ProcessInboxEntry(e.ID, model.Document{Provider: "Endesa", Amount: 12})
	require.NoError(t, err)
	st := s.State()
	entry := st.Inbox[st.InboxIndex(e.ID)]
	assert.Equal(t, model.InboxProcessed, entry.Status)
	assert.Equal(t, doc.ID, entry.DocumentID)
	assert.GreaterOrEqual(t, st.DocumentIndex(doc.ID), 0)

	_, err = s.ProcessInboxEntry(e.ID, model.Document{Amount: 1})
	assert.Error(t, err)

	require.NoError(t, s.UpdateInboxEntry(e.ID, func(in *model.InboxEntry) { in.Status = model.InboxError }))
	assert.ErrorIs(t, s.UpdateInboxEntry("x", func(*model.InboxEntry) {}), ErrNotFound)
}

func TestRunRulesCommitsOnce(t *testing.T) {
	bus := events.NewBus(10)
	s, mem := newDemoStore(t, WithBus(bus))
	notified := 0
	s.Subscribe(func(model.State) { notified++ })

	report := s.RunRules(rules.New(rules.Config{}))

	assert.False(t, report.Empty())
	assert.Equal(t, 1, notified)
	assert.Equal(t, 1, mem.Saves())
	assert.Len(t, mem.Runs(), 1)
	assert.Len(t, s.State().Alerts, 7)

	kinds := []events.Kind{}
	for _, ev := range bus.Recent() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []events.Kind{events.KindStateChanged, events.KindRulesRun}, kinds)

	s.RunRules(rules.New(rules.Config{}))
	assert.Len(t, s.State().Alerts, 14, "alerts are appended again on every run")
}

func TestRunRulesWithoutChangesCommitsNothing(t *testing.T) {
	data, err := json.Marshal(model.State{})
	require.NoError(t, err)
	mem := NewMemory(data)
	s := New(mem, WithClock(clock))

	report := s.RunRules(rules.New(rules.Config{}))

	assert.True(t, report.Empty())
	assert.Zero(t, mem.Saves())
	assert.Zero(t, s.Revision())
}

func TestResetDemo(t *testing.T) {
	s, _ := newDemoStore(t)
	s.Update(func(st *model.State) { st.Accounts = nil })

	require.NoError(t, s.ResetDemo())
	assert.Len(t, s.State().Accounts, 4)
}

func TestSQLitePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	data, err := db.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	s := New(db, WithClock(clock))
	s.Update(func(st *model.State) { st.Accounts[0].Name = "Persistida" })
	report := s.RunRules(rules.New(rules.Config{}))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	reloaded := New(db, WithClock(clock)).State()
	assert.Equal(t, "Persistida", reloaded.Accounts[0].Name)
	assert.Len(t, reloaded.Alerts, 7)

	runs, err := db.RuleRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, len(report.Changes), runs[0].Changes)
	assert.Equal(t, 5, runs[0].ByPass["alerts"])
	assert.True(t, runs[0].RanAt.Equal(testNow))
	assert.Len(t, runs[0].Report.Changes, len(report.Changes))

	require.NoError(t, db.Clear())
	data, err = db.Load()
	require.NoError(t, err)
	assert.Nil(t, data)
}
