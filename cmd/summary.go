package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio summary: rent, expenses, debt and treasury",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		stats := pipeline.Aggregate(st)
		props := pipeline.AggregateProperties(st)

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"stats": stats, "properties": props})
		}

		if stats.Properties == 0 {
			fmt.Println("\n  No properties yet.")
			fmt.Println("  Run `atlas reset` to load the demo portfolio.")
			return nil
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle("ATLAS  Cartera"))
		fmt.Println()

		rows := [][]string{
			{"Inmuebles", cli.FormatNumber(int64(stats.Properties))},
			{"Unidades ocupadas", fmt.Sprintf("%d/%d (%s)", stats.OccupiedUnits, stats.Units, cli.FormatPercent(stats.OccupancyRate))},
			{"---"},
			{"Renta mensual", cli.FormatEUR(stats.MonthlyRent)},
			{"Gastos mensuales", cli.FormatEUR(stats.MonthlyExpenses)},
			{"Cuotas préstamos", cli.FormatEUR(stats.MonthlyDebt)},
			{"Neto mensual", cli.RenderAmount(stats.NetMonthly)},
			{"---"},
			{"Tesorería", cli.FormatEUR(stats.TotalBalance)},
			{"Variación 7d", cli.FormatDelta(stats.BalanceDelta7)},
			{"Variación 30d", cli.FormatDelta(stats.BalanceDelta30)},
			{"Cuentas en riesgo", cli.FormatNumber(int64(stats.AccountsAtRisk))},
			{"---"},
			{"Capital pendiente", cli.FormatEUR(stats.PendingCapital)},
			{"Docs pendientes", fmt.Sprintf("%d (%s)", stats.PendingDocuments, cli.FormatEUR(stats.PendingAmount))},
			{"Alertas abiertas", cli.FormatNumber(int64(stats.OpenAlerts))},
		}

		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Métrica", "Valor"},
			Rows:    rows,
		}))

		propRows := make([][]string, 0, len(props))
		for _, p := range props {
			propRows = append(propRows, []string{
				cli.Truncate(p.Alias, 22),
				p.Status,
				cli.FormatEUR(p.MonthlyRent),
				cli.FormatEUR(p.MonthlyExpenses),
				cli.FormatEUR(p.MonthlyDebt),
				cli.RenderAmount(p.NetMonthly),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Por inmueble",
			Headers:  []string{"Inmueble", "Estado", "Renta", "Gastos", "Cuota", "Neto"},
			Rows:     propRows,
			LeftCols: []int{1},
		}))
		return nil
	})
}
