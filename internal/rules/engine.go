// Package rules implements the ATLAS rules engine: five sequential passes over
// a working copy of the state, each reporting what it changed. The caller
// commits the resulting state in a single update.
package rules

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/atlas/internal/model"
)

// Pass names, in execution order.
type Pass string

const (
	PassClassify Pass = "classify"
	PassLink     Pass = "link"
	PassPredict  Pass = "predict"
	PassSweep    Pass = "sweep"
	PassAlerts   Pass = "alerts"
)

// Passes lists every pass in the order Run executes them.
var Passes = []Pass{PassClassify, PassLink, PassPredict, PassSweep, PassAlerts}

// Change kinds.
const (
	KindClassified     = "classified"
	KindLinked         = "linked"
	KindManualReview   = "manual_review"
	KindPredicted      = "predicted"
	KindSweepSuggested = "sweep_suggested"
	KindAlertAdded     = "alert_added"
)

// Change describes one modification (or finding) made by a pass.
type Change struct {
	Pass    Pass     `json:"pass"`
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	IDs     []string `json:"ids,omitempty"`
}

// Report is the outcome of one Run.
type Report struct {
	RanAt   time.Time `json:"ran_at"`
	Changes []Change  `json:"changes"`
}

// Empty reports whether the run changed nothing.
func (r Report) Empty() bool { return len(r.Changes) == 0 }

// Count returns the number of changes produced by pass p.
func (r Report) Count(p Pass) int {
	n := 0
	for _, c := range r.Changes {
		if c.Pass == p {
			n++
		}
	}
	return n
}

// ByPass returns change counts keyed by pass name.
func (r Report) ByPass() map[string]int {
	out := make(map[string]int, len(Passes))
	for _, c := range r.Changes {
		out[string(c.Pass)]++
	}
	return out
}

// Config tunes the engine. Zero values fall back to the defaults.
type Config struct {
	// MovementMatchingDays overrides the document's config when > 0.
	MovementMatchingDays int
	HorizonDays          int
	RevisionAlertDays    int
	// DedupeAlerts skips an alert when an undismissed one with the same type
	// and source exists. Off by default: re-running the engine appends again.
	DedupeAlerts bool
}

const (
	DefaultMatchingDays      = 5
	DefaultHorizonDays       = 90
	DefaultRevisionAlertDays = 30
)

// Engine runs the passes. It holds no state between runs.
type Engine struct {
	cfg   Config
	newID func() string
}

// New returns an engine with cfg, filling unset fields with defaults.
func New(cfg Config) *Engine {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = DefaultHorizonDays
	}
	if cfg.RevisionAlertDays <= 0 {
		cfg.RevisionAlertDays = DefaultRevisionAlertDays
	}
	return &Engine{cfg: cfg, newID: uuid.NewString}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run executes every pass in order on a copy of st. The input is never
// modified; the returned state contains all changes.
func (e *Engine) Run(st model.State, now time.Time) (model.State, Report) {
	work := st.Clone()
	report := Report{RanAt: now}

	report.Changes = append(report.Changes, e.classify(&work)...)
	report.Changes = append(report.Changes, e.link(&work)...)
	report.Changes = append(report.Changes, e.predict(&work, now)...)
	report.Changes = append(report.Changes, e.sweeps(&work, now)...)
	report.Changes = append(report.Changes, e.stateAlerts(&work, now)...)

	return work, report
}

func (e *Engine) matchingDays(st *model.State) int {
	if e.cfg.MovementMatchingDays > 0 {
		return e.cfg.MovementMatchingDays
	}
	if st.Config.MovementMatchingDays > 0 {
		return st.Config.MovementMatchingDays
	}
	return DefaultMatchingDays
}

// appendAlert adds a to st unless deduplication is on and an equivalent open
// alert exists. It reports whether the alert was added.
func (e *Engine) appendAlert(st *model.State, a model.Alert) bool {
	if e.cfg.DedupeAlerts && hasOpenAlert(st, a.Type, a.SourceID) {
		return false
	}
	if a.ID == "" {
		a.ID = e.newID()
	}
	st.Alerts = append(st.Alerts, a)
	return true
}

func hasOpenAlert(st *model.State, typ, sourceID string) bool {
	for _, a := range st.Alerts {
		if !a.Dismissed && a.Type == typ && a.SourceID == sourceID {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysApart returns the absolute distance between a and b in days.
func daysApart(a, b time.Time) float64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d.Hours() / 24
}

// calendarDaysApart counts whole calendar days between the dates of a and b,
// ignoring the time of day.
func calendarDaysApart(a, b time.Time) float64 {
	return math.Round(daysApart(startOfDay(a), startOfDay(b)))
}
