// Package seed provides the demo dataset the store falls back to when there is
// no saved state.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/atlas/internal/model"
)

//go:embed demo.yaml
var demoYAML []byte

type demoFile struct {
	Anchor time.Time   `yaml:"anchor"`
	State  model.State `yaml:"state"`
}

// Demo decodes the embedded dataset and shifts every date so the dataset's
// anchor day falls on now's day.
func Demo(now time.Time) (model.State, error) {
	var f demoFile
	if err := yaml.Unmarshal(demoYAML, &f); err != nil {
		return model.State{}, fmt.Errorf("parsing demo dataset: %w", err)
	}
	shift := dayShift(f.Anchor, now)
	rebase(&f.State, shift)
	f.State.LastUpdate = now
	return f.State, nil
}

// InitialState is the demo dataset, or an empty document with default
// settings if the embedded file is unreadable.
func InitialState(now time.Time) model.State {
	st, err := Demo(now)
	if err != nil {
		return Empty()
	}
	return st
}

// Empty returns a document with no entities and default settings.
func Empty() model.State {
	return model.State{
		Config: model.Config{MovementMatchingDays: 5},
	}
}

func dayShift(anchor, now time.Time) time.Duration {
	a := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return n.Sub(a)
}

func rebase(st *model.State, d time.Duration) {
	shift := func(t *time.Time) {
		if !t.IsZero() {
			*t = t.Add(d)
		}
	}
	for i := range st.Loans {
		shift(&st.Loans[i].NextRevision)
		for j := range st.Loans[i].Amortizations {
			shift(&st.Loans[i].Amortizations[j].Date)
		}
	}
	for i := range st.Documents {
		shift(&st.Documents[i].Date)
	}
	for i := range st.Movements {
		shift(&st.Movements[i].Date)
	}
	for i := range st.Inbox {
		shift(&st.Inbox[i].ReceivedAt)
	}
	for i := range st.Alerts {
		shift(&st.Alerts[i].CreatedAt)
	}
	for i := range st.PredictedItems {
		shift(&st.PredictedItems[i].Date)
	}
}
