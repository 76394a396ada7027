package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/titanic/dataset"
)

func newDescribeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Summarize the training CSV",
		Long:  `Describe prints count, mean, standard deviation, min and max of every column of the training CSV.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := dataset.LoadCSV(a.cfg.Data.Path)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"COLUMN", "COUNT", "MEAN", "STD", "MIN", "MAX"})
			for _, s := range ds.Describe() {
				t.AppendRow(table.Row{
					s.Name, s.Count,
					fmt.Sprintf("%.4f", s.Mean),
					fmt.Sprintf("%.4f", s.Std),
					fmt.Sprintf("%.4f", s.Min),
					fmt.Sprintf("%.4f", s.Max),
				})
			}
			// 数値列は右寄せ
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 2, Align: text.AlignRight},
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			t.Render()
			return nil
		},
	}
}
