// Package daemon provides the long-running background service: it watches
// the invoice inbox, runs the rules engine after startup and serves the state,
// actions and event stream over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
	"github.com/theirongolddev/atlas/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	InboxDir     string
	Interval     time.Duration // inbox poll interval
	RulesDelay   time.Duration // zero disables the startup rules run
	EventsBuffer int           // SSE subscriber channel size
}

// Snapshot is a compact portfolio state for status/event payloads.
type Snapshot struct {
	At               time.Time `json:"at"`
	Revision         int64     `json:"revision"`
	TotalBalance     float64   `json:"total_balance"`
	NetMonthly       float64   `json:"net_monthly"`
	AccountsAtRisk   int       `json:"accounts_at_risk"`
	PendingDocuments int       `json:"pending_documents"`
	PendingAmount    float64   `json:"pending_amount"`
	OpenAlerts       int       `json:"open_alerts"`
	PredictedItems   int       `json:"predicted_items"`
}

// Delta captures snapshot deltas between commits.
type Delta struct {
	TotalBalance     float64 `json:"total_balance"`
	PendingDocuments int     `json:"pending_documents"`
	OpenAlerts       int     `json:"open_alerts"`
	PredictedItems   int     `json:"predicted_items"`
}

func (d Delta) isZero() bool {
	return d.TotalBalance == 0 &&
		d.PendingDocuments == 0 &&
		d.OpenAlerts == 0 &&
		d.PredictedItems == 0
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	InboxDir        string    `json:"inbox_dir,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastDelta       Delta     `json:"last_delta"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Summary is served at /v1/summary.
type Summary struct {
	Stats      model.SummaryStats       `json:"stats"`
	Properties []model.PropertyStats    `json:"properties"`
	Accounts   []model.AccountStats     `json:"accounts"`
	Cashflow   []model.MonthlyCashflow  `json:"cashflow"`
	Debt       pipeline.DebtTotals      `json:"debt"`
	Loans      []pipeline.LoanBreakdown `json:"loans"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	rt  *pipeline.Runtime
	log *slog.Logger

	polls     prometheus.Counter
	processed prometheus.Counter

	mu         sync.RWMutex
	startedAt  time.Time
	lastPollAt time.Time
	pollCount  int64
	lastError  string
	snapshot   Snapshot
	lastDelta  Delta
}

// New returns a daemon service over rt. Its counters are registered in
// rt.Registry.
func New(rt *pipeline.Runtime, cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 10 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 16
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	s := &Service{
		cfg:       cfg,
		rt:        rt,
		log:       rt.Log,
		startedAt: time.Now(),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "daemon",
			Name:      "inbox_polls_total",
			Help:      "Inbox directory polls.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "daemon",
			Name:      "inbox_processed_total",
			Help:      "Inbox entries turned into documents by the daemon.",
		}),
	}
	if rt.Registry != nil {
		rt.Registry.MustRegister(s.polls, s.processed)
	}
	s.snapshot = snapshotFromState(rt.Store.State(), rt.Store.Revision())
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/state", s.handleState)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("POST /v1/actions/{id}", s.handleAction)
	mux.HandleFunc("POST /v1/rules/run", s.handleRulesRun)
	if s.rt.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.rt.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run starts HTTP endpoints, the startup rules run and inbox polling until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	unsubscribe := s.rt.Store.Subscribe(s.onCommit)
	defer unsubscribe()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.rt.ScheduleRules(ctx, s.cfg.RulesDelay)
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce registers new inbox files and processes every pending entry.
func (s *Service) pollOnce(ctx context.Context) {
	s.polls.Inc()

	var err error
	if s.cfg.InboxDir != "" {
		if _, err = s.rt.Inbox.Sync(s.cfg.InboxDir); err == nil {
			res, perr := s.rt.Inbox.ProcessPending(ctx, nil)
			s.processed.Add(float64(res.Processed))
			err = perr
			if err == nil && res.Failed > 0 {
				err = fmt.Errorf("%d inbox entries failed", res.Failed)
			}
		}
	}

	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("inbox poll", "dir", s.cfg.InboxDir, "err", err)
	}
}

// onCommit refreshes the snapshot after every store commit.
func (s *Service) onCommit(st model.State) {
	snap := snapshotFromState(st, s.rt.Store.Revision())

	s.mu.Lock()
	delta := diffSnapshots(s.snapshot, snap)
	s.snapshot = snap
	if !delta.isZero() {
		s.lastDelta = delta
	}
	s.mu.Unlock()
}

func snapshotFromState(st model.State, revision int64) Snapshot {
	stats := pipeline.Aggregate(st)
	return Snapshot{
		At:               st.LastUpdate,
		Revision:         revision,
		TotalBalance:     stats.TotalBalance,
		NetMonthly:       stats.NetMonthly,
		AccountsAtRisk:   stats.AccountsAtRisk,
		PendingDocuments: stats.PendingDocuments,
		PendingAmount:    stats.PendingAmount,
		OpenAlerts:       stats.OpenAlerts,
		PredictedItems:   len(st.PredictedItems),
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		TotalBalance:     curr.TotalBalance - prev.TotalBalance,
		PendingDocuments: curr.PendingDocuments - prev.PendingDocuments,
		OpenAlerts:       curr.OpenAlerts - prev.OpenAlerts,
		PredictedItems:   curr.PredictedItems - prev.PredictedItems,
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		InboxDir:        s.cfg.InboxDir,
		Summary:         s.snapshot,
		LastDelta:       s.lastDelta,
		LastError:       s.lastError,
		EventCount:      len(s.rt.Bus.Recent()),
		SubscriberCount: s.rt.Bus.SubscriberCount(),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Store.State())
}

func (s *Service) handleSummary(w http.ResponseWriter, _ *http.Request) {
	st := s.rt.Store.State()
	debt, loans := pipeline.AggregateDebt(st)
	writeJSON(w, http.StatusOK, Summary{
		Stats:      pipeline.Aggregate(st),
		Properties: pipeline.AggregateProperties(st),
		Accounts:   pipeline.AggregateAccounts(st),
		Cashflow:   pipeline.Cashflow(st),
		Debt:       debt,
		Loans:      loans,
	})
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Bus.Recent())
}

// actionResult is the body returned by action endpoints.
type actionResult struct {
	OK       bool   `json:"ok"`
	Action   string `json:"action"`
	Revision int64  `json:"revision"`
	Error    string `json:"error,omitempty"`
}

func (s *Service) handleAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	params := actions.Params{}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, actionResult{Action: id, Error: err.Error()})
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeJSON(w, http.StatusBadRequest, actionResult{Action: id, Error: "params must be a JSON object of strings"})
			return
		}
	}

	s.dispatch(w, id, params)
}

func (s *Service) handleRulesRun(w http.ResponseWriter, _ *http.Request) {
	s.dispatch(w, actions.RulesRun, nil)
}

func (s *Service) dispatch(w http.ResponseWriter, id string, params actions.Params) {
	err := s.rt.Actions.Dispatch(id, params)
	res := actionResult{OK: err == nil, Action: id, Revision: s.rt.Store.Revision()}
	if err != nil {
		res.Error = err.Error()
	}
	writeJSON(w, statusForError(err), res)
}

func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, actions.ErrUnknownAction), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, actions.ErrMissingParam), errors.Is(err, store.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.rt.Bus.Subscribe(s.cfg.EventsBuffer)
	defer unsubscribe()

	// Send current snapshot immediately.
	writeSSE(w, "snapshot", s.snapshotStatus().Summary)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, string(ev.Kind), ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", kind)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
