package cmd

import (
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var flagResetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace all state with the demo portfolio",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "Skip confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(_ *cobra.Command, _ []string) error {
	if !flagResetYes {
		confirm := false
		err := huh.NewConfirm().
			Title("¿Reemplazar todos los datos por la cartera de demostración?").
			Affirmative("Sí").
			Negative("No").
			Value(&confirm).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if !confirm {
			return nil
		}
	}
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, actions.DemoReset, nil)
	})
}
