package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/cli"
	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var (
	flagDocStatus     string
	flagDocProperty   string
	flagDocProvider   string
	flagDocSince      string
	flagDocCategory   string
	flagDocDeductible bool
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"documents", "invoices"},
	Short:   "List and manage invoices",
	RunE:    runDocsList,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, most recent first",
	RunE:  runDocsList,
}

var docsValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Mark a document as validated",
	Args:  cobra.ExactArgs(1),
	RunE:  docAction(actions.InvoiceValidate),
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE:  docAction(actions.InvoiceDelete),
}

var docsCategorizeCmd = &cobra.Command{
	Use:   "categorize <id>",
	Short: "Set category, property and deductibility",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsCategorize,
}

func init() {
	docsCmd.PersistentFlags().StringVar(&flagDocStatus, "status", "", "Filter by status (Pendiente, Validada, Revisar)")
	docsCmd.PersistentFlags().StringVarP(&flagDocProperty, "property", "p", "", "Filter by (or assign) property id")
	docsCmd.PersistentFlags().StringVar(&flagDocProvider, "provider", "", "Filter by provider (substring match)")
	docsCmd.PersistentFlags().StringVar(&flagDocSince, "since", "", "Only documents on or after this date (YYYY-MM-DD)")

	docsCategorizeCmd.Flags().StringVarP(&flagDocCategory, "category", "c", "", "Category name")
	docsCategorizeCmd.Flags().BoolVar(&flagDocDeductible, "deductible", true, "Whether the expense is deductible")
	_ = docsCategorizeCmd.MarkFlagRequired("category")

	docsCmd.AddCommand(docsListCmd, docsValidateCmd, docsDeleteCmd, docsCategorizeCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(_ *cobra.Command, _ []string) error {
	filter := pipeline.DocumentFilter{
		Status:     flagDocStatus,
		PropertyID: flagDocProperty,
		Provider:   flagDocProvider,
	}
	if flagDocSince != "" {
		since, err := time.Parse(time.DateOnly, flagDocSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = since
	}

	return withRuntime(func(rt *pipeline.Runtime) error {
		st := rt.Store.State()
		docs := pipeline.FilterDocuments(st.Documents, filter)

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}

		if len(docs) == 0 {
			fmt.Println("\n  No documents match.")
			return nil
		}

		aliases := make(map[string]string, len(st.Properties))
		for _, p := range st.Properties {
			aliases[p.ID] = p.Alias
		}

		var total float64
		rows := make([][]string, 0, len(docs)+2)
		for _, d := range docs {
			total += d.Amount
			deductible := ""
			if d.IsDeductible {
				deductible = "sí"
			}
			rows = append(rows, []string{
				d.ID,
				cli.FormatDate(d.Date),
				cli.Truncate(d.Provider, 28),
				d.Category,
				cli.Truncate(aliases[d.PropertyID], 18),
				cli.FormatEUR(d.Amount),
				d.Status,
				deductible,
			})
		}
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{fmt.Sprintf("%d docs", len(docs)), "", "", "", "", cli.FormatEUR(total), "", ""})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:    "Documentos",
			Headers:  []string{"ID", "Fecha", "Proveedor", "Categoría", "Inmueble", "Importe", "Estado", "Deduc."},
			Rows:     rows,
			LeftCols: []int{1, 2, 3, 4, 6, 7},
		}))
		return nil
	})
}

func docAction(id string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		return withRuntime(func(rt *pipeline.Runtime) error {
			return dispatch(rt, id, actions.Params{"id": args[0]})
		})
	}
}

func runDocsCategorize(_ *cobra.Command, args []string) error {
	if _, ok := config.LookupCategory(flagDocCategory); !ok {
		return fmt.Errorf("unknown category %q (known: %v)", flagDocCategory, config.CategoryNames())
	}
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, actions.InvoiceCategorize, actions.Params{
			"id":         args[0],
			"category":   flagDocCategory,
			"deductible": strconv.FormatBool(flagDocDeductible),
			"property":   flagDocProperty,
		})
	})
}
