package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// daemonRuntimeState is what a running daemon records in its pid file.
type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
	InboxDir  string    `json:"inbox_dir"`
}

// pidLock guards a single daemon per data dir. The pid file holds the
// daemon's runtime state as JSON.
type pidLock struct {
	path string
}

func newPIDLock(path string) pidLock { return pidLock{path: path} }

// acquire writes st unless a live daemon already holds the lock. A pid file
// left by a dead process is taken over.
func (l pidLock) acquire(st daemonRuntimeState) error {
	if pid, running := l.running(); running {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (l pidLock) release() { _ = os.Remove(l.path) }

func (l pidLock) read() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	data, err := os.ReadFile(l.path) //nolint:gosec // pid path comes from the local config
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("reading %s: %w", l.path, err)
	}
	if st.PID <= 0 {
		return st, fmt.Errorf("invalid pid in %s", l.path)
	}
	return st, nil
}

// running reports the recorded pid and whether that process is alive.
func (l pidLock) running() (int, bool) {
	st, err := l.read()
	if err != nil {
		return 0, false
	}
	return st.PID, processAlive(st.PID)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// childArgs turns the current invocation into the detached child's: the
// detach flag is dropped and the hidden child marker added.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--child")
}
