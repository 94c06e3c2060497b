package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	rt, err := pipeline.Open(config.DefaultConfig(), pipeline.Options{
		InMemory: true,
		Clock:    func() time.Time { return testNow },
		OCRSeed:  7,
	})
	if err != nil {
		t.Fatalf("pipeline.Open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt, cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		TotalBalance:     55340.50,
		PendingDocuments: 5,
		OpenAlerts:       0,
		PredictedItems:   0,
	}
	curr := Snapshot{
		TotalBalance:     55340.50,
		PendingDocuments: 4,
		OpenAlerts:       7,
		PredictedItems:   12,
	}

	delta := diffSnapshots(prev, curr)
	if delta.PendingDocuments != -1 {
		t.Fatalf("PendingDocuments delta = %d, want -1", delta.PendingDocuments)
	}
	if delta.OpenAlerts != 7 {
		t.Fatalf("OpenAlerts delta = %d, want 7", delta.OpenAlerts)
	}
	if delta.PredictedItems != 12 {
		t.Fatalf("PredictedItems delta = %d, want 12", delta.PredictedItems)
	}
	if delta.TotalBalance != 0 {
		t.Fatalf("TotalBalance delta = %.2f, want 0", delta.TotalBalance)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestHealthAndState(t *testing.T) {
	s := newTestService(t, Config{})
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/v1/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var st model.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if len(st.Accounts) != 4 || len(st.Documents) != 6 {
		t.Fatalf("accounts/documents = %d/%d, want 4/6", len(st.Accounts), len(st.Documents))
	}
}

func TestSummary(t *testing.T) {
	s := newTestService(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/v1/summary", "")
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if sum.Stats.Properties != 4 || sum.Stats.PendingDocuments != 5 {
		t.Fatalf("stats = %+v", sum.Stats)
	}
	if len(sum.Loans) != 2 || sum.Debt.NextRevisionLoan != "loan-atico" {
		t.Fatalf("debt = %+v loans = %d", sum.Debt, len(sum.Loans))
	}
}

func TestActionEndpoint(t *testing.T) {
	s := newTestService(t, Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/actions/invoice:validate", `{"id":"doc-001"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res actionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Revision != 1 {
		t.Fatalf("result = %+v, want ok at revision 1", res)
	}
	for _, d := range s.rt.Store.State().Documents {
		if d.ID == "doc-001" && d.Status != model.StatusValidated {
			t.Fatalf("doc-001 status = %q", d.Status)
		}
	}

	tests := []struct {
		path string
		body string
		want int
	}{
		{"/v1/actions/nope:nope", "", http.StatusNotFound},
		{"/v1/actions/invoice:validate", `{"id":"doc-missing"}`, http.StatusNotFound},
		{"/v1/actions/invoice:validate", "", http.StatusBadRequest},
		{"/v1/actions/loan:amortize", `{"id":"loan-atico","amount":"-5"}`, http.StatusBadRequest},
		{"/v1/actions/invoice:validate", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, h, http.MethodPost, tt.path, tt.body); rec.Code != tt.want {
			t.Errorf("POST %s %s = %d, want %d (%s)", tt.path, tt.body, rec.Code, tt.want, rec.Body.String())
		}
	}

	if rec := do(t, h, http.MethodGet, "/v1/actions/invoice:validate", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET action = %d, want 405", rec.Code)
	}
}

func TestRulesRunUpdatesSnapshot(t *testing.T) {
	s := newTestService(t, Config{})
	unsubscribe := s.rt.Store.Subscribe(s.onCommit)
	defer unsubscribe()

	rec := do(t, s.Handler(), http.MethodPost, "/v1/rules/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rules run status = %d body=%s", rec.Code, rec.Body.String())
	}

	st := s.snapshotStatus()
	if st.Summary.OpenAlerts != 7 || st.Summary.PredictedItems != 12 {
		t.Fatalf("snapshot = %+v, want 7 alerts and 12 predicted items", st.Summary)
	}
	if st.LastDelta.OpenAlerts != 7 {
		t.Fatalf("LastDelta = %+v", st.LastDelta)
	}
	if st.Summary.Revision != 1 {
		t.Fatalf("Revision = %d, want 1", st.Summary.Revision)
	}

	var events []map[string]any
	if err := json.Unmarshal(do(t, s.Handler(), http.MethodGet, "/v1/events", "").Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev["type"].(string))
	}
	if strings.Join(kinds, ",") != "state_changed,rules_run,toast" {
		t.Fatalf("event kinds = %v", kinds)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestService(t, Config{})
	h := s.Handler()

	do(t, h, http.MethodPost, "/v1/actions/alert:dismiss", `{"id":"nope"}`)
	s.pollOnce(context.Background())

	body := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		`atlas_actions_total{action="alert:dismiss",result="not_found"} 1`,
		"atlas_daemon_inbox_polls_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestPollOnceProcessesInbox(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "factura_agua.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestService(t, Config{InboxDir: dir})

	s.pollOnce(context.Background())

	status := s.snapshotStatus()
	if status.PollCount != 1 || status.LastError != "" {
		t.Fatalf("status = %+v", status)
	}
	st := s.rt.Store.State()
	if len(st.Documents) != 8 {
		t.Fatalf("documents = %d, want 8 (seeded entry plus scanned file)", len(st.Documents))
	}
	for _, e := range st.Inbox {
		if e.Status == model.InboxPending {
			t.Fatalf("entry %s still pending", e.ID)
		}
	}

	s.pollOnce(context.Background())
	if n := len(s.rt.Store.State().Documents); n != 8 {
		t.Fatalf("second poll created documents: %d", n)
	}
}

func TestStreamRelaysBusEvents(t *testing.T) {
	s := newTestService(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream")
			return ""
		}
	}

	if l := next(); l != "event: snapshot" {
		t.Fatalf("first line = %q", l)
	}

	postResp, err := http.Post(srv.URL+"/v1/actions/alert:dismiss", "application/json", strings.NewReader(`{"id":"nope"}`))
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(io.Discard, postResp.Body)
	_ = postResp.Body.Close()

	for {
		l := next()
		if l == "event: toast" {
			data := next()
			if !strings.Contains(data, "No encontrado") {
				t.Fatalf("toast data = %q", data)
			}
			return
		}
	}
}
