package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/config"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"id=doc-001", "category=Suministros", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, actions.Params{"id": "doc-001", "category": "Suministros", "note": "a=b"}, params)

	_, err = parseParams([]string{"id"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestResolveDaemonPaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.DataDir = t.TempDir()

	paths := resolveDaemonPaths(cfg)
	assert.Equal(t, cfg.Daemon.Addr, paths.addr)
	assert.Equal(t, filepath.Join(cfg.General.DataDir, "atlasd.pid"), paths.pidFile)
	assert.Equal(t, filepath.Join(cfg.General.DataDir, "atlasd.log"), paths.logFile)

	flagDaemonAddr = "127.0.0.1:9999"
	t.Cleanup(func() { flagDaemonAddr = "" })
	assert.Equal(t, "127.0.0.1:9999", resolveDaemonPaths(cfg).addr)
}

func TestChildArgs(t *testing.T) {
	got := childArgs([]string{"daemon", "--detach", "--addr", "x", "--detach=true"})
	assert.Equal(t, []string{"daemon", "--addr", "x", "--child"}, got)
}

func TestPIDLock(t *testing.T) {
	lock := newPIDLock(filepath.Join(t.TempDir(), "run", "atlasd.pid"))

	_, running := lock.running()
	assert.False(t, running)

	require.NoError(t, lock.acquire(daemonRuntimeState{PID: os.Getpid(), Addr: "127.0.0.1:8787"}))
	st, err := lock.read()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8787", st.Addr)

	pid, running := lock.running()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
	assert.Error(t, lock.acquire(daemonRuntimeState{PID: os.Getpid()}), "a live daemon holds the lock")

	lock.release()
	_, err = lock.read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPIDLockRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlasd.pid")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o600))

	_, err := newPIDLock(path).read()
	assert.Error(t, err)
	_, running := newPIDLock(path).running()
	assert.False(t, running)
}
