package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var (
	flagSweepHub     string
	flagSweepDisable bool
	flagSweepFrom    string
	flagSweepTo      string
	flagSweepAmount  float64
	flagSweepAlert   string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Configure and execute treasury sweeps",
}

var sweepConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Set the hub account that funds sweeps",
	RunE:  runSweepConfig,
}

var sweepExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Move money between accounts",
	RunE:  runSweepExecute,
}

func init() {
	sweepConfigCmd.Flags().StringVar(&flagSweepHub, "hub", "", "Hub account id")
	sweepConfigCmd.Flags().BoolVar(&flagSweepDisable, "disable", false, "Disable sweep suggestions")

	sweepExecuteCmd.Flags().StringVar(&flagSweepFrom, "from", "", "Source account id")
	sweepExecuteCmd.Flags().StringVar(&flagSweepTo, "to", "", "Destination account id")
	sweepExecuteCmd.Flags().Float64Var(&flagSweepAmount, "amount", 0, "Amount to move")
	sweepExecuteCmd.Flags().StringVar(&flagSweepAlert, "alert", "", "Sweep alert to dismiss afterwards")
	_ = sweepExecuteCmd.MarkFlagRequired("from")
	_ = sweepExecuteCmd.MarkFlagRequired("to")
	_ = sweepExecuteCmd.MarkFlagRequired("amount")

	sweepCmd.AddCommand(sweepConfigCmd, sweepExecuteCmd)
	rootCmd.AddCommand(sweepCmd)
}

func runSweepConfig(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		current := rt.Store.State().Config.Sweep
		if flagSweepHub == "" && !flagSweepDisable {
			status := "disabled"
			if current.Enabled {
				status = "enabled"
			}
			fmt.Printf("  Hub account: %s (%s)\n", current.HubAccountID, status)
			return nil
		}

		hub := flagSweepHub
		if hub == "" {
			hub = current.HubAccountID
		}
		return dispatch(rt, actions.SweepConfigure, actions.Params{
			"hub":     hub,
			"enabled": strconv.FormatBool(!flagSweepDisable),
		})
	})
}

func runSweepExecute(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, actions.SweepExecute, actions.Params{
			"from":   flagSweepFrom,
			"to":     flagSweepTo,
			"amount": strconv.FormatFloat(flagSweepAmount, 'f', 2, 64),
			"alert":  flagSweepAlert,
		})
	})
}
