package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/finance"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var (
	flagLoanPrincipal float64
	flagLoanRate      float64
	flagLoanMonths    int
	flagLoanSchedule  bool
	flagLoanAmount    float64
	flagLoanMode      string
)

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "Mortgages: debt overview, simulations and early repayments",
	RunE:  runLoansList,
}

var loansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loans with pending capital and interest to pay",
	RunE:  runLoansList,
}

var loansSimulateCmd = &cobra.Command{
	Use:   "simulate [loan-id]",
	Short: "Simulate a French-amortization loan or an early repayment",
	Long: "Without arguments, computes the payment for --principal, --rate and --months.\n" +
		"With a loan id and --amount, shows the effect of an early repayment without applying it.",
	Args: cobra.MaximumNArgs(1),
	RunE: runLoansSimulate,
}

var loansAmortizeCmd = &cobra.Command{
	Use:   "amortize <loan-id>",
	Short: "Apply an early repayment",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoansAmortize,
}

func init() {
	loansSimulateCmd.Flags().Float64Var(&flagLoanPrincipal, "principal", 0, "Loan principal")
	loansSimulateCmd.Flags().Float64Var(&flagLoanRate, "rate", 0, "Annual interest rate in percent")
	loansSimulateCmd.Flags().IntVar(&flagLoanMonths, "months", 0, "Term in months")
	loansSimulateCmd.Flags().BoolVar(&flagLoanSchedule, "schedule", false, "Print the full installment schedule")

	for _, c := range []*cobra.Command{loansSimulateCmd, loansAmortizeCmd} {
		c.Flags().Float64Var(&flagLoanAmount, "amount", 0, "Early repayment amount")
		c.Flags().StringVar(&flagLoanMode, "mode", string(model.ReducePayment), "What the repayment reduces: payment or term")
	}
	_ = loansAmortizeCmd.MarkFlagRequired("amount")

	loansCmd.AddCommand(loansListCmd, loansSimulateCmd, loansAmortizeCmd)
	rootCmd.AddCommand(loansCmd)
}

func runLoansList(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		totals, loans := pipeline.AggregateDebt(rt.Store.State())
		if len(loans) == 0 {
			fmt.Println("\n  No loans.")
			return nil
		}

		rows := make([][]string, 0, len(loans)+2)
		for _, l := range loans {
			rows = append(rows, []string{
				l.LoanID,
				cli.Truncate(l.Property, 20),
				l.Bank,
				cli.FormatEUR(l.PendingCapital),
				cli.FormatEUR(l.MonthlyPayment),
				cli.FormatRate(l.InterestRate),
				cli.FormatMonths(l.RemainingMonths),
				cli.FormatEUR(l.InterestToPay),
				cli.FormatDate(l.NextRevision),
			})
		}
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"Total", "", "",
			cli.FormatEUR(totals.PendingCapital), cli.FormatEUR(totals.MonthlyPayment),
			cli.FormatRate(totals.WeightedRate), "", cli.FormatEUR(totals.InterestToPay), cli.FormatDate(totals.NextRevision)})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Préstamos",
			Headers:  []string{"ID", "Inmueble", "Banco", "Pendiente", "Cuota", "Tipo", "Plazo", "Intereses", "Revisión"},
			Rows:     rows,
			LeftCols: []int{1, 2},
		}))
		if totals.AmortizedToDate > 0 {
			fmt.Printf("\n  Amortizado anticipadamente: %s\n", cli.FormatEUR(totals.AmortizedToDate))
		}
		return nil
	})
}

func runLoansSimulate(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return simulatePlan(flagLoanPrincipal, flagLoanRate, flagLoanMonths)
	}
	if flagLoanAmount <= 0 {
		return errors.New("--amount is required to simulate an early repayment")
	}

	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		i := st.LoanIndex(args[0])
		if i < 0 {
			return fmt.Errorf("loan %q not found", args[0])
		}
		loan := st.Loans[i]

		rep, err := finance.EarlyRepayment(loan, flagLoanAmount, model.AmortizationMode(flagLoanMode))
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Amortizar %s de %s", cli.FormatEUR(flagLoanAmount), loan.ID),
			Headers: []string{"", "Ahora", "Después"},
			Rows: [][]string{
				{"Capital pendiente", cli.FormatEUR(loan.PendingCapital), cli.FormatEUR(rep.PendingCapital)},
				{"Cuota", cli.FormatEUR(loan.MonthlyPayment), cli.FormatEUR(rep.MonthlyPayment)},
				{"Plazo", cli.FormatMonths(loan.RemainingMonths), cli.FormatMonths(rep.RemainingMonths)},
				{"---"},
				{"Intereses ahorrados", "", cli.RenderAmount(rep.InterestSaved)},
			},
		}))
		return nil
	})
}

func simulatePlan(principal, rate float64, months int) error {
	plan, err := finance.CalculateFrenchAmortization(principal, rate, months)
	if err != nil {
		return fmt.Errorf("%w (use --principal, --rate and --months)", err)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Amortización francesa",
		Headers: []string{"Concepto", "Valor"},
		Rows: [][]string{
			{"Capital", cli.FormatEUR(plan.Principal)},
			{"Tipo anual", cli.FormatRate(plan.AnnualRate)},
			{"Plazo", cli.FormatMonths(plan.Months)},
			{"---"},
			{"Cuota mensual", cli.FormatEUR(plan.MonthlyPayment)},
			{"Total pagado", cli.FormatEUR(plan.TotalPaid)},
			{"Intereses", cli.FormatEUR(plan.TotalInterest)},
			{"TAE aprox.", cli.FormatRate(plan.TAE)},
		},
	}))

	if !flagLoanSchedule {
		return nil
	}

	schedule, err := finance.Schedule(principal, rate, months)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(schedule))
	for _, in := range schedule {
		rows = append(rows, []string{
			strconv.Itoa(in.Number),
			cli.FormatEUR(in.Payment.InexactFloat64()),
			cli.FormatEUR(in.Interest.InexactFloat64()),
			cli.FormatEUR(in.Principal.InexactFloat64()),
			cli.FormatEUR(in.Balance.InexactFloat64()),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Cuadro de amortización",
		Headers: []string{"#", "Cuota", "Interés", "Capital", "Pendiente"},
		Rows:    rows,
	}))
	return nil
}

func runLoansAmortize(_ *cobra.Command, args []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, actions.LoanAmortize, actions.Params{
			"id":     args[0],
			"amount": strconv.FormatFloat(flagLoanAmount, 'f', 2, 64),
			"mode":   flagLoanMode,
		})
	})
}
