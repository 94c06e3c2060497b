package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/atlas/internal/actions"
	"github.com/theirongolddev/atlas/internal/pipeline"
)

var actionCmd = &cobra.Command{
	Use:   "action <id> [key=value...]",
	Short: "Dispatch any action by id",
	Long: "Runs the same actions the dashboard buttons and the daemon API use.\n" +
		"Example: atlas action invoice:categorize id=doc-001 category=Suministros",
	Args: cobra.MinimumNArgs(1),
	RunE: runAction,
}

var actionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered action ids",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withRuntime(func(rt *pipeline.Runtime) error {
			for _, id := range rt.Actions.IDs() {
				fmt.Println("  " + id)
			}
			return nil
		})
	},
}

func init() {
	actionCmd.AddCommand(actionListCmd)
	rootCmd.AddCommand(actionCmd)
}

func runAction(_ *cobra.Command, args []string) error {
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	return withRuntime(func(rt *pipeline.Runtime) error {
		return dispatch(rt, args[0], params)
	})
}

func parseParams(args []string) (actions.Params, error) {
	params := actions.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
