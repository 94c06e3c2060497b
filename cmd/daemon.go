package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/daemon"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background service: inbox polling, rules and an HTTP/SSE API",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 15*time.Second, "Inbox polling interval")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", "", "PID file path (default <data-dir>/atlasd.pid)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", "", "Log file path for detached mode (default <data-dir>/atlasd.log)")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Per-subscriber event buffer (default from config)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonPaths resolves the flag defaults that depend on the config.
type daemonPaths struct {
	addr    string
	pidFile string
	logFile string
}

func resolveDaemonPaths(cfg config.Config) daemonPaths {
	p := daemonPaths{addr: flagDaemonAddr, pidFile: flagDaemonPIDFile, logFile: flagDaemonLogFile}
	if p.addr == "" {
		p.addr = cfg.Daemon.Addr
	}
	if p.pidFile == "" {
		p.pidFile = filepath.Join(config.DataDir(cfg), "atlasd.pid")
	}
	if p.logFile == "" {
		p.logFile = filepath.Join(config.DataDir(cfg), "atlasd.log")
	}
	return p
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground()
}

func startDaemonDetached() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths := resolveDaemonPaths(cfg)
	if pid, running := newPIDLock(paths.pidFile).running(); running {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(paths.logFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(paths.logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", paths.pidFile)
	fmt.Printf("  API: http://%s/v1/status\n", paths.addr)
	fmt.Printf("  Log: %s\n", paths.logFile)
	return nil
}

func runDaemonForeground() error {
	if flagDemo {
		return errors.New("the daemon needs persistent state; drop --demo")
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	paths := resolveDaemonPaths(rt.Config)
	inboxDir := config.InboxDir(rt.Config)

	lock := newPIDLock(paths.pidFile)
	err = lock.acquire(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      paths.addr,
		StartedAt: time.Now(),
		DataDir:   config.DataDir(rt.Config),
		InboxDir:  inboxDir,
	})
	if err != nil {
		return err
	}
	defer lock.release()

	buffer := flagDaemonEventsBuffer
	if buffer == 0 {
		buffer = rt.Config.Daemon.EventsBuffer
	}
	svc := daemon.New(rt, daemon.Config{
		Addr:         paths.addr,
		InboxDir:     inboxDir,
		Interval:     flagDaemonInterval,
		RulesDelay:   rt.Config.Rules.Delay(),
		EventsBuffer: buffer,
	})

	fmt.Printf("  atlas daemon listening on http://%s\n", paths.addr)
	fmt.Printf("  Polling %s every %s\n", inboxDir, flagDaemonInterval)
	fmt.Printf("  Stop with: atlas daemon stop --pid-file %s\n", paths.pidFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths := resolveDaemonPaths(cfg)

	lock := newPIDLock(paths.pidFile)
	st, err := lock.read()
	if err != nil {
		fmt.Printf("  Daemon: not running (%s not found)\n", paths.pidFile)
		return nil
	}
	pid := st.PID
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := paths.addr
	if st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if status.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", status.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Poll count: %d\n", status.PollCount)
	if status.InboxDir != "" {
		fmt.Printf("  Inbox: %s\n", status.InboxDir)
	}
	sum := status.Summary
	fmt.Printf("  Revision: %d\n", sum.Revision)
	fmt.Printf("  Balance: %s\n", cli.FormatEUR(sum.TotalBalance))
	fmt.Printf("  Net monthly: %s\n", cli.FormatEUR(sum.NetMonthly))
	fmt.Printf("  Pending documents: %d (%s)\n", sum.PendingDocuments, cli.FormatEUR(sum.PendingAmount))
	fmt.Printf("  Open alerts: %d\n", sum.OpenAlerts)
	fmt.Printf("  SSE subscribers: %d\n", status.SubscriberCount)
	if status.LastError != "" {
		fmt.Printf("  Last error: %s\n", status.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths := resolveDaemonPaths(cfg)

	lock := newPIDLock(paths.pidFile)
	pid, running := lock.running()
	if !running {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			lock.release()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}
