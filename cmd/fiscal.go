package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/finance"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var flagFiscalYear int

var fiscalCmd = &cobra.Command{
	Use:   "fiscal",
	Short: "Yearly fiscal summary per property",
	RunE:  runFiscal,
}

func init() {
	fiscalCmd.Flags().IntVarP(&flagFiscalYear, "year", "y", 0, "Fiscal year (default current year)")
	rootCmd.AddCommand(fiscalCmd)
}

func runFiscal(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		year := flagFiscalYear
		if year == 0 {
			year = rt.Store.Now().Year()
		}
		summaries := finance.FiscalYear(rt.Store.State(), year)
		if len(summaries) == 0 {
			fmt.Println("\n  No properties.")
			return nil
		}

		var totals finance.FiscalSummary
		rows := make([][]string, 0, len(summaries)+2)
		for _, s := range summaries {
			totals.Income += s.Income
			totals.Expenses += s.Expenses
			totals.CapexAmortization += s.CapexAmortization
			totals.RCDeductible += s.RCDeductible
			totals.RCCarryForward += s.RCCarryForward
			totals.Net += s.Net
			rows = append(rows, []string{
				cli.Truncate(s.Alias, 22),
				cli.FormatEUR(s.Income),
				cli.FormatEUR(s.Expenses),
				cli.FormatEUR(s.CapexAmortization),
				cli.FormatEUR(s.RCDeductible),
				cli.FormatEUR(s.RCCarryForward),
				cli.RenderAmount(s.Net),
			})
		}
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"Total",
			cli.FormatEUR(totals.Income), cli.FormatEUR(totals.Expenses), cli.FormatEUR(totals.CapexAmortization),
			cli.FormatEUR(totals.RCDeductible), cli.FormatEUR(totals.RCCarryForward), cli.RenderAmount(totals.Net)})

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("FISCALIDAD  %d", year)))
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Inmueble", "Ingresos", "Gastos", "Amort. mejoras", "R+C deducible", "R+C a compensar", "Rendimiento"},
			Rows:    rows,
		}))
		if year == rt.Store.Now().Year() {
			fmt.Println("\n  Year in progress: income assumes twelve months of current rent.")
		}
		return nil
	})
}
