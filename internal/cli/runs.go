package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/titanic/config"
	"github.com/YuminosukeSato/titanic/pipeline"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/tracking"
)

func newRunsCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List tracked runs",
		Long: `Runs lists the runs recorded in the SQLite tracking database, newest first,
with their split parameters and F1 score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Tracking.Backend != config.BackendSQLite {
				return errors.NewConfigurationError("tracking.backend",
					"listing runs needs the sqlite backend", a.cfg.Tracking.Backend)
			}

			store := tracking.NewSQLiteStore(tracking.WithStoreLogger(a.logger))
			if err := store.Open(a.cfg.Tracking.Path); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(); err != nil {
				return err
			}

			experiment := a.cfg.Tracking.Experiment
			if all {
				experiment = ""
			}
			runs, err := store.ListRuns(experiment)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"RUN", "EXPERIMENT", "STATUS", "STARTED", "TEST SIZE", "SEED", "F1", "PARAMS"})
			for _, r := range runs {
				f1 := "-"
				if v, ok := r.Metrics[pipeline.MetricF1]; ok {
					f1 = fmt.Sprintf("%.3f", v)
				}
				t.AppendRow(table.Row{
					r.ID, r.Experiment, r.Status,
					r.StartedAt.Local().Format(time.DateTime),
					orDash(r.Params[pipeline.ParamTestSize]),
					orDash(r.Params[pipeline.ParamRandomState]),
					f1, otherParams(r.Params),
				})
			}
			t.Render()
			_, _ = fmt.Fprintf(out, "(%d runs)\n", len(runs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list runs of every experiment")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// otherParams renders the params not shown in their own column.
func otherParams(params map[string]string) string {
	var keys []string
	for k := range params {
		if k == pipeline.ParamTestSize || k == pipeline.ParamRandomState {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}
