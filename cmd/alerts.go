package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var flagAlertsAll bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List and dismiss alerts",
	RunE:  runAlertsList,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open alerts, most recent first",
	RunE:  runAlertsList,
}

var alertsDismissCmd = &cobra.Command{
	Use:   "dismiss <id>...",
	Short: "Dismiss one or more alerts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAlertsDismiss,
}

func init() {
	alertsCmd.PersistentFlags().BoolVarP(&flagAlertsAll, "all", "a", false, "Include dismissed alerts")
	alertsCmd.AddCommand(alertsListCmd, alertsDismissCmd)
	rootCmd.AddCommand(alertsCmd)
}

func runAlertsList(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		alerts := pipeline.OpenAlerts(st.Alerts)
		if flagAlertsAll {
			alerts = st.Alerts
		}
		if len(alerts) == 0 {
			fmt.Println("\n  No open alerts.")
			return nil
		}

		rows := make([][]string, 0, len(alerts))
		for _, a := range alerts {
			var acts []string
			for _, act := range a.Actions {
				acts = append(acts, act.Action)
			}
			title := a.Title
			if a.Dismissed {
				title += " (descartada)"
			}
			rows = append(rows, []string{
				cli.RenderSeverity(a.Severity),
				a.ID,
				cli.FormatDate(a.CreatedAt),
				cli.Truncate(title, 48),
				strings.Join(acts, " "),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    fmt.Sprintf("Alertas (%d)", len(alerts)),
			Headers:  []string{"Sev.", "ID", "Fecha", "Título", "Acciones"},
			Rows:     rows,
			LeftCols: []int{1, 2, 3, 4},
		}))
		return nil
	})
}

func runAlertsDismiss(_ *cobra.Command, args []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		for _, id := range args {
			if err := dispatch(rt, actions.AlertDismiss, actions.Params{"id": id}); err != nil {
				return err
			}
		}
		return nil
	})
}
