package commands

import (
	"fmt"
	"time"

	"github.com/jhunt/go-ansi"
	"github.com/jhunt/go-table"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit int
		run   string
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded compile runs",
		Long: `History lists compile runs recorded in the --history-db database,
newest first. --run prints the findings of one run; --prune deletes runs
older than the given age.`,
		Example: `  espforge history --history-db espforge.db
  espforge history --history-db espforge.db --run 6f1c...
  espforge history --history-db espforge.db --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(ctx)
			if err := a.requireHistory(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if prune > 0 {
				n, err := a.history.PruneBefore(ctx, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				ansi.Fprintf(out, "Pruned @G{%d} run(s) older than %s\n", n, prune)
				return nil
			}

			if run != "" {
				r, err := a.history.GetRun(ctx, run)
				if err != nil {
					return err
				}
				findings, err := a.history.ListFindings(ctx, run)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, map[string]interface{}{"run": r, "findings": findings})
				}
				ansi.Fprintf(out, "Run @C{%s} %s (%s)\n", r.ID, r.Status, r.ConfigPath)
				if r.Error != nil {
					ansi.Fprintf(out, "@R{%s}\n", *r.Error)
				}
				tbl := table.NewTable("#", "Nibbler", "Status", "Message")
				for _, f := range findings {
					tbl.Row(f, fmt.Sprintf("%d", f.Seq), f.Nibbler, f.Status, f.Message)
				}
				tbl.Output(out)
				return nil
			}

			runs, err := a.history.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, runs)
			}
			tbl := table.NewTable("Run", "Started", "Project", "Platform", "Status", "Gate", "Duration", "Error")
			for _, r := range runs {
				code := ""
				if r.ErrorCode != nil {
					code = *r.ErrorCode
				}
				tbl.Row(r, r.ID, r.StartedAt.Local().Format(time.DateTime), r.Project, r.Platform,
					string(r.Status), fmt.Sprintf("%t", r.GateOpen), r.Duration.Round(time.Millisecond).String(), code)
			}
			tbl.Output(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&run, "run", "", "show the findings of one run")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this age")

	return cmd
}
