package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/events"
	"github.com/theirongolddev/atlas/internal/inbox"
	"github.com/theirongolddev/atlas/internal/rules"
	"github.com/theirongolddev/atlas/internal/store"
)

// Runtime is everything a front end (CLI, dashboard, daemon) needs.
type Runtime struct {
	Config   config.Config
	DB       *store.SQLite // nil for in-memory runtimes
	Store    *store.Store
	Bus      *events.Bus
	Engine   *rules.Engine
	Inbox    *inbox.Processor
	Actions  *actions.Dispatcher
	Registry *prometheus.Registry
	Log      *slog.Logger
}

// Options tunes Open.
type Options struct {
	Logger *slog.Logger
	Clock  func() time.Time
	// InMemory skips the database; state starts from demo data and is lost
	// on exit.
	InMemory bool
	// OCRSeed seeds the simulated recognizer. Zero uses the clock.
	OCRSeed uint64
}

// EngineConfig maps the [rules] section to engine settings.
func EngineConfig(cfg config.Config) rules.Config {
	return rules.Config{
		MovementMatchingDays: cfg.Rules.MovementMatchingDays,
		HorizonDays:          cfg.Rules.PredictionHorizonDays,
		RevisionAlertDays:    cfg.Rules.RevisionAlertDays,
		DedupeAlerts:         cfg.Rules.DedupeAlerts,
	}
}

// Open opens the state database and assembles the runtime.
func Open(cfg config.Config, opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	rt := &Runtime{
		Config:   cfg,
		Bus:      events.NewBus(cfg.Daemon.EventsBuffer),
		Engine:   rules.New(EngineConfig(cfg)),
		Registry: prometheus.NewRegistry(),
		Log:      log,
	}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var persist store.Persister = &store.Memory{}
	if !opts.InMemory {
		dbPath := config.DBPath(cfg)
		db, err := store.OpenSQLite(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", dbPath, err)
		}
		rt.DB = db
		persist = db
	}

	rt.Store = store.New(persist,
		store.WithClock(clock),
		store.WithBus(rt.Bus),
		store.WithLogger(log),
	)

	seed := opts.OCRSeed
	if seed == 0 {
		seed = uint64(clock().UnixNano())
	}
	rt.Inbox = inbox.NewProcessor(rt.Store, inbox.NewSimulated(seed),
		inbox.WithCategories(cfg.Categories),
		inbox.WithLogger(log),
	)
	rt.Actions = actions.New(rt.Store, rt.Bus, rt.Engine,
		actions.WithInbox(rt.Inbox),
		actions.WithMetrics(actions.NewMetrics(rt.Registry)),
		actions.WithLogger(log),
	)
	return rt, nil
}

// Close releases the database.
func (r *Runtime) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// ScheduleRules runs the engine through the rules:run action once after
// delay, unless ctx ends first. A zero delay disables the run. Runs triggered
// manually before the timer fires do not cancel it.
func (r *Runtime) ScheduleRules(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if err := r.Actions.Dispatch(actions.RulesRun, nil); err != nil {
				r.Log.Error("scheduled rules run", "err", err)
			}
		}
	}()
}
