// Package store holds the ATLAS state document, persists it after every
// update and notifies subscribers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/rules"
	"github.com/theirongolddev/atlas/internal/seed"
)

var (
	// ErrNotFound is wrapped by every helper whose lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAmount rejects zero or negative money amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Persister stores the serialized document. Load returns nil data when
// nothing has been saved yet.
type Persister interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// RunRecorder is implemented by persisters that keep a history of rules
// engine runs.
type RunRecorder interface {
	RecordRun(r rules.Report) error
}

// Listener receives the committed state after every update.
type Listener func(model.State)

type subscriber struct {
	id int
	fn Listener
}

// Store is safe for concurrent use. Updates are serialized and listeners run
// after the lock is released, in subscription order.
type Store struct {
	mu       sync.Mutex
	state    model.State
	revision int64
	persist  Persister
	bus      *events.Bus
	log      *slog.Logger
	now      func() time.Time

	subMu   sync.Mutex
	nextSub int
	subs    []subscriber
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithBus publishes a state_changed event after every commit.
func WithBus(b *events.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New loads the saved document from p. A missing or unreadable document is
// replaced by the demo dataset; top-level keys absent from older saves keep
// their demo defaults.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.state = s.load()
	return s
}

func (s *Store) load() model.State {
	now := s.now()
	st := seed.InitialState(now)
	if s.persist == nil {
		return st
	}

	data, err := s.persist.Load()
	if err != nil {
		s.log.Warn("loading saved state, using demo data", "err", err)
		return st
	}
	if len(data) == 0 {
		return st
	}
	if err := mergeSaved(&st, data); err != nil {
		s.log.Warn("decoding saved state, using demo data", "err", err)
		return seed.InitialState(now)
	}
	return st
}

// mergeSaved overlays the top-level keys present in data onto st. A saved
// list replaces the default list as a whole; absent keys keep the default.
// The config object is decoded onto the default config.
func mergeSaved(st *model.State, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var saved model.State
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}

	setters := map[string]func(){
		"accounts":       func() { st.Accounts = saved.Accounts },
		"properties":     func() { st.Properties = saved.Properties },
		"loans":          func() { st.Loans = saved.Loans },
		"contracts":      func() { st.Contracts = saved.Contracts },
		"documents":      func() { st.Documents = saved.Documents },
		"inbox":          func() { st.Inbox = saved.Inbox },
		"movements":      func() { st.Movements = saved.Movements },
		"alerts":         func() { st.Alerts = saved.Alerts },
		"providerRules":  func() { st.ProviderRules = saved.ProviderRules },
		"predictedItems": func() { st.PredictedItems = saved.PredictedItems },
		"lastUpdate":     func() { st.LastUpdate = saved.LastUpdate },
	}
	for key, value := range raw {
		if key == "config" {
			if err := json.Unmarshal(value, &st.Config); err != nil {
				return fmt.Errorf("decoding config: %w", err)
			}
			continue
		}
		if set, ok := setters[key]; ok {
			set()
		}
	}
	return nil
}

// State returns a copy of the current document.
func (s *Store) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Revision counts committed updates since the store was created.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// Update applies fn to a copy of the document and commits the result.
func (s *Store) Update(fn func(*model.State)) {
	_ = s.mutate(func(st *model.State) error {
		fn(st)
		return nil
	})
}

// errSkip aborts a mutation without committing and without an error.
var errSkip = errors.New("skip commit")

// mutate is Update for helpers that can fail. When fn returns an error
// nothing is committed.
func (s *Store) mutate(fn func(*model.State) error) error {
	s.mu.Lock()
	work := s.state.Clone()
	if err := fn(&work); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}
	work.LastUpdate = s.now()
	s.state = work
	s.revision++
	rev := s.revision
	s.save(work)
	committed := work.Clone()
	s.mu.Unlock()

	s.notify(committed)
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:  events.KindStateChanged,
			State: &events.StateChange{LastUpdate: committed.LastUpdate, Revision: rev},
		})
	}
	return nil
}

// save writes st through the persister. Failures are logged and dropped.
func (s *Store) save(st model.State) {
	if s.persist == nil {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		s.log.Error("encoding state", "err", err)
		return
	}
	if err := s.persist.Save(data); err != nil {
		s.log.Error("saving state", "err", err)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(st model.State) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(st)
	}
}

// RunRules runs the engine on the current document and commits the result in
// a single update. Runs without changes commit nothing.
func (s *Store) RunRules(e *rules.Engine) rules.Report {
	var report rules.Report
	_ = s.mutate(func(st *model.State) error {
		var out model.State
		out, report = e.Run(*st, s.now())
		if report.Empty() {
			return errSkip
		}
		*st = out
		return nil
	})

	if rec, ok := s.persist.(RunRecorder); ok {
		if err := rec.RecordRun(report); err != nil {
			s.log.Error("recording rules run", "err", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:  events.KindRulesRun,
			Rules: &events.RulesRun{Changes: len(report.Changes), ByPass: report.ByPass()},
		})
	}
	return report
}

// ResetDemo replaces the document with a freshly rebased demo dataset.
func (s *Store) ResetDemo() error {
	return s.mutate(func(st *model.State) error {
		demo, err := seed.Demo(s.now())
		if err != nil {
			return fmt.Errorf("resetting demo data: %w", err)
		}
		*st = demo
		return nil
	})
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
