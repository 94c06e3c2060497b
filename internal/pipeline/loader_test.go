package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/events"
)

func TestOpenInMemory(t *testing.T) {
	rt, err := Open(config.DefaultConfig(), Options{InMemory: true, Clock: func() time.Time { return testNow }, OCRSeed: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.DB != nil {
		t.Fatal("in-memory runtime opened a database")
	}
	if n := len(rt.Store.State().Accounts); n != 4 {
		t.Fatalf("accounts = %d, want demo data", n)
	}
	if _, err := rt.Inbox.Process("inbox-001"); err != nil {
		t.Fatalf("Process error: %v", err)
	}
}

func TestOpenSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.DataDir = filepath.Join(t.TempDir(), "data")

	rt, err := Open(cfg, Options{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if rt.DB == nil {
		t.Fatal("DB = nil, want SQLite persister")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestScheduleRules(t *testing.T) {
	rt, err := Open(config.DefaultConfig(), Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	ch, unsubscribe := rt.Bus.Subscribe(32)
	defer unsubscribe()

	rt.ScheduleRules(context.Background(), 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == events.KindRulesRun {
				if ev.Rules.Changes == 0 {
					t.Fatal("scheduled run reported no changes on demo data")
				}
				return
			}
		case <-deadline:
			t.Fatal("scheduled rules run did not happen")
		}
	}
}

func TestScheduleRulesCancelled(t *testing.T) {
	rt, err := Open(config.DefaultConfig(), Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt.ScheduleRules(ctx, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if len(rt.Store.State().Alerts) != 0 {
		t.Fatal("rules ran after context was cancelled")
	}
}
