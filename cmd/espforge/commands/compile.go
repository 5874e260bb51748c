package commands

import (
	"time"

	"github.com/jhunt/go-ansi"
	"github.com/spf13/cobra"
)

func newCompileCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "compile <config.yaml>",
		Short: "Compile a project into a render context",
		Long: `Compile loads the project document, runs every validation check,
resolves components and devices, transpiles the app script and writes the
result to render_context.json.

All findings are printed before a failed validation stops the compile.
The script is taken from app.star next to the document when present,
otherwise from the selected example.`,
		Example: `  # Compile into the current directory
  espforge compile blink.yaml

  # Write the render context elsewhere and record the run
  espforge compile blink.yaml -o build --history-db espforge.db`,
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
			res, err := compiler.Compile(ctx, args[0])
			if res != nil && jsonOutput {
				if jerr := writeJSON(out, res); jerr != nil {
					return jerr
				}
			} else if res != nil && len(res.Findings) > 0 {
				printFindings(out, res.Findings)
				printGate(out, res.Findings)
			}
			if err != nil {
				return err
			}

			path, err := writeRenderContext(outputDir, res.RenderContext)
			if err != nil {
				return err
			}
			if !jsonOutput {
				if res.ScriptSource != "" {
					ansi.Fprintf(out, "Script: @C{%s}\n", res.ScriptSource)
				}
				ansi.Fprintf(out, "@G{Compiled} %s -> %s in %s (run %s)\n",
					args[0], path, res.Duration.Round(time.Microsecond), res.RunID)
			}
			a.logger.Debug().Str("run_id", res.RunID.String()).Str("output", path).Msg("Render context written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory for "+RenderContextFile)

	return cmd
}
