package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var flagInboxDir string

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Invoice inbox: register files and turn them into documents",
	RunE:  runInboxScan,
}

var inboxScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Register new files from the inbox directory and list entries",
	RunE:  runInboxScan,
}

var inboxProcessCmd = &cobra.Command{
	Use:   "process [entry-id]",
	Short: "Recognize pending entries (all of them without an id)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInboxProcess,
}

func init() {
	inboxCmd.PersistentFlags().StringVar(&flagInboxDir, "dir", "", "Inbox directory (default from config)")
	inboxCmd.AddCommand(inboxScanCmd, inboxProcessCmd)
	rootCmd.AddCommand(inboxCmd)
}

func inboxDir(rt *pipeline.Runtime) string {
	if flagInboxDir != "" {
		return flagInboxDir
	}
	return config.InboxDir(rt.Config)
}

func runInboxScan(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		dir := inboxDir(rt)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating inbox dir: %w", err)
		}
		added, err := rt.Inbox.Sync(dir)
		if err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Scanned %s: %d new files\n", dir, len(added))
		}

		entries := rt.Store.State().Inbox
		if len(entries) == 0 {
			fmt.Println("\n  Inbox is empty.")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.ID, cli.Truncate(e.FileName, 36), cli.FormatDate(e.ReceivedAt), e.Status, e.DocumentID})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Bandeja de entrada",
			Headers:  []string{"ID", "Fichero", "Recibido", "Estado", "Documento"},
			Rows:     rows,
			LeftCols: []int{1, 2, 3, 4},
		}))
		return nil
	})
}

func runInboxProcess(_ *cobra.Command, args []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		if len(args) == 1 {
			return dispatch(rt, actions.InboxProcess, actions.Params{"id": args[0]})
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		var mu sync.Mutex
		progressFn := func(current, total int) {
			if flagQuiet {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(os.Stderr, "\r  Recognizing %s", cli.RenderProgressBar(current, total, 24))
		}

		res, err := rt.Inbox.ProcessPending(ctx, progressFn)
		if !flagQuiet && res.Total > 0 {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		if res.Total == 0 {
			fmt.Println("  Nothing pending. Run `atlas inbox scan` to pick up new files.")
			return nil
		}
		fmt.Printf("  Processed %d of %d entries", res.Processed, res.Total)
		if res.Failed > 0 {
			fmt.Printf(" (%d failed)", res.Failed)
		}
		fmt.Println()
		return nil
	})
}
