package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/pipeline"
	"github.com/theirongolddev/atlas/internal/rules"
)

var (
	flagRuleProvider   string
	flagRuleCategory   string
	flagRuleDeductible bool
	flagRuleProperty   string
	flagSuggestApply   bool
	flagHistoryLimit   int
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Provider rules and the rules engine",
	RunE:  runRulesList,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provider rules in evaluation order",
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider rule (interactive without flags)",
	RunE:  runRulesAdd,
}

var rulesToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Activate or deactivate a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  ruleAction(actions.RuleToggle),
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  ruleAction(actions.RuleDelete),
}

var rulesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the rules engine once and print what changed",
	RunE:  runRulesRun,
}

var rulesSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest rules for unclassified providers",
	RunE:  runRulesSuggest,
}

var rulesHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past rules engine runs",
	RunE:  runRulesHistory,
}

func init() {
	rulesAddCmd.Flags().StringVar(&flagRuleProvider, "provider", "", "Provider substring to match (case-insensitive)")
	rulesAddCmd.Flags().StringVarP(&flagRuleCategory, "category", "c", "", "Category to assign")
	rulesAddCmd.Flags().BoolVar(&flagRuleDeductible, "deductible", true, "Mark matched documents deductible")
	rulesAddCmd.Flags().StringVarP(&flagRuleProperty, "property", "p", "", "Property id, or \""+model.AutoProperty+"\" to resolve through contracts")

	rulesSuggestCmd.Flags().BoolVar(&flagSuggestApply, "apply", false, "Add every suggestion as an active rule")
	rulesHistoryCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 10, "Number of runs to show (0 for all)")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesToggleCmd, rulesDeleteCmd,
		rulesRunCmd, rulesSuggestCmd, rulesHistoryCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		ruleList := rt.Store.State().ProviderRules
		sort.SliceStable(ruleList, func(i, j int) bool { return ruleList[i].Order < ruleList[j].Order })

		if len(ruleList) == 0 {
			fmt.Println("\n  No rules. Add one with `atlas rules add`.")
			return nil
		}

		rows := make([][]string, 0, len(ruleList))
		for _, r := range ruleList {
			active := "no"
			if r.Active {
				active = "sí"
			}
			deductible := "no"
			if r.IsDeductible {
				deductible = "sí"
			}
			rows = append(rows, []string{
				strconv.Itoa(r.Order), r.ID, r.ProviderContains, r.Category, r.PropertyID, deductible, active,
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Reglas de proveedor",
			Headers:  []string{"#", "ID", "Contiene", "Categoría", "Inmueble", "Deduc.", "Activa"},
			Rows:     rows,
			LeftCols: []int{1, 2, 3, 4, 5, 6},
		}))
		return nil
	})
}

func runRulesAdd(_ *cobra.Command, _ []string) error {
	if flagRuleProvider == "" || flagRuleCategory == "" {
		if err := ruleForm().Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, actions.RuleAdd, actions.Params{
			"provider":   flagRuleProvider,
			"category":   flagRuleCategory,
			"deductible": strconv.FormatBool(flagRuleDeductible),
			"property":   flagRuleProperty,
		})
	})
}

// ruleForm asks for the fields missing from the flags.
func ruleForm() *huh.Form {
	opts := make([]huh.Option[string], 0)
	for _, name := range config.CategoryNames() {
		opts = append(opts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("El proveedor contiene").
				Validate(func(s string) error {
					if s == "" {
						return errors.New("required")
					}
					return nil
				}).
				Value(&flagRuleProvider),
			huh.NewSelect[string]().
				Title("Categoría").
				Options(opts...).
				Value(&flagRuleCategory),
			huh.NewInput().
				Title("Inmueble").
				Description(fmt.Sprintf("Id del inmueble, %q para resolver por contrato, vacío para ninguno.", model.AutoProperty)).
				Value(&flagRuleProperty),
			huh.NewConfirm().
				Title("¿Deducible?").
				Value(&flagRuleDeductible),
		),
	)
}

func ruleAction(id string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		return withRuntime(func(rt *pipeline.Runtime) error {
			return dispatch(rt, id, actions.Params{"id": args[0]})
		})
	}
}

func runRulesRun(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		report := rt.Store.RunRules(rt.Engine)

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Println()
		if report.Empty() {
			fmt.Println("  Rules engine: no changes")
			return nil
		}
		printReport(report)
		return nil
	})
}

func printReport(report rules.Report) {
	rows := make([][]string, 0, len(report.Changes))
	for _, p := range rules.Passes {
		for _, c := range report.Changes {
			if c.Pass == p {
				rows = append(rows, []string{string(c.Pass), c.Kind, cli.Truncate(c.Message, 70)})
			}
		}
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    fmt.Sprintf("Motor de reglas: %d cambios", len(report.Changes)),
		Headers:  []string{"Pase", "Tipo", "Detalle"},
		Rows:     rows,
		LeftCols: []int{1, 2},
	}))
}

func runRulesSuggest(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		suggestions := rules.Suggest(st)

		if len(suggestions) == 0 {
			fmt.Println("\n  No suggestions: every provider is classified or has no close match.")
			return nil
		}

		rows := make([][]string, 0, len(suggestions))
		for _, s := range suggestions {
			rows = append(rows, []string{
				s.ProviderContains, s.Category, s.PropertyID, cli.Truncate(s.BasedOn, 28),
				fmt.Sprintf("%.2f", s.Distance), strconv.Itoa(len(s.DocumentIDs)),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Reglas sugeridas",
			Headers:  []string{"Contiene", "Categoría", "Inmueble", "Basada en", "Dist.", "Docs"},
			Rows:     rows,
			LeftCols: []int{1, 2, 3},
		}))

		if !flagSuggestApply {
			fmt.Println("\n  Re-run with --apply to add them.")
			return nil
		}

		order := 0
		for _, r := range st.ProviderRules {
			order = max(order, r.Order)
		}
		for i, s := range suggestions {
			rule := s.Rule(uuid.NewString(), order+i+1)
			if _, err := rt.Store.AddProviderRule(rule); err != nil {
				return fmt.Errorf("adding rule for %q: %w", s.ProviderContains, err)
			}
		}
		fmt.Printf("\n  Added %d rules.\n", len(suggestions))
		return nil
	})
}

func runRulesHistory(_ *cobra.Command, _ []string) error {
	return withRuntime(func(rt *pipeline.Runtime) error {
		if rt.DB == nil {
			return errors.New("run history is only kept in the state database (drop --demo)")
		}
		runs, err := rt.DB.RuleRuns(flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading run history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("\n  The rules engine has not run yet.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			row := []string{r.RanAt.Local().Format("2006-01-02 15:04:05"), strconv.Itoa(r.Changes)}
			for _, p := range rules.Passes {
				row = append(row, strconv.Itoa(r.ByPass[string(p)]))
			}
			rows = append(rows, row)
		}
		headers := []string{"Fecha", "Cambios"}
		for _, p := range rules.Passes {
			headers = append(headers, string(p))
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Title: "Historial del motor", Headers: headers, Rows: rows}))
		return nil
	})
}
