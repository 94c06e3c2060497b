package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Treasury status: account balances, coverage and forecast",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		accounts := pipeline.AggregateAccounts(st)
		cashflow := pipeline.Cashflow(st)

		fmt.Println()
		fmt.Println(cli.RenderTitle("TESORERÍA"))
		fmt.Println()

		rows := make([][]string, 0, len(accounts)+2)
		var total, target, forecast float64
		for _, a := range accounts {
			total += a.Balance
			target += a.Target
			forecast += a.Forecast
			trend := cli.RenderSparkline([]float64{a.Balance - a.Delta30, a.Balance - a.Delta7, a.Balance})
			rows = append(rows, []string{
				cli.Truncate(a.Name, 20),
				a.Bank,
				cli.FormatEUR(a.Balance),
				cli.FormatEUR(a.Target),
				cli.FormatDelta(a.Delta7),
				trend,
				cli.RenderHealth(a.Health),
				cli.FormatEUR(a.Forecast),
			})
		}
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"Total", "", cli.FormatEUR(total), cli.FormatEUR(target), "", "", "", cli.FormatEUR(forecast)})

		fmt.Print(cli.RenderTable(cli.Table{
			Headers:  []string{"Cuenta", "Banco", "Saldo", "Objetivo", "7d", "Tend.", "Salud", "Previsto"},
			Rows:     rows,
			LeftCols: []int{1, 5, 6},
		}))

		sweep := st.Config.Sweep
		fmt.Println()
		if sweep.Enabled {
			fmt.Printf("  Barrido activo desde %s\n", sweep.HubAccountID)
		} else {
			fmt.Println("  Barrido desactivado")
		}

		if len(cashflow) == 0 {
			fmt.Println("  Sin previsiones. Ejecuta `atlas rules run`.")
			return nil
		}

		peak := 0.0
		for _, m := range cashflow {
			peak = max(peak, m.Inflows, m.Outflows)
		}
		fmt.Println()
		fmt.Println("  Flujo previsto")
		for _, m := range cashflow {
			label := fmt.Sprintf("%-9s %12s", cli.FormatMonth(m.Month), cli.FormatDelta(m.Net))
			fmt.Println(cli.RenderHorizontalBar(label, m.Net, peak, 30))
		}
		return nil
	})
}
