package store

import (
	"sync"

	"github.com/theirongolddev/atlas/internal/rules"
)

// Memory is an in-process Persister. The zero value is ready to use.
type Memory struct {
	mu   sync.Mutex
	data []byte
	runs []rules.Report

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
	saves   int
}

// NewMemory returns a Memory pre-loaded with data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// Load returns a copy of the saved data.
func (m *Memory) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Save replaces the saved data.
func (m *Memory) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// RecordRun keeps r in memory.
func (m *Memory) RecordRun(r rules.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// Runs returns the recorded rules engine runs, oldest first.
func (m *Memory) Runs() []rules.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rules.Report, len(m.runs))
	copy(out, m.runs)
	return out
}
