package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Run the validation checks on a project",
		Long: `Validate loads the project document and runs every validation check
without resolving code. It exits non-zero when any check reports an error.`,
		Example: `  espforge validate blink.yaml
  espforge validate --policy ./policies blink.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			compiler, err := a.compiler(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results, err := compiler.Validate(ctx, args[0])
			if jsonOutput {
				if jerr := writeJSON(out, results); jerr != nil {
					return jerr
				}
				return err
			}
			if len(results) > 0 {
				printFindings(out, results)
				printGate(out, results)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return nil
		},
	}

	return cmd
}
