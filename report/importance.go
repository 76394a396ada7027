// Package report renders fitted-model summaries for people.
package report

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// Importance is one feature's share of the model's impurity decrease.
type Importance struct {
	Feature string
	Value   float64
}

// Rank pairs names with importances and sorts them from most to least
// important. Ties keep the input order.
func Rank(names []string, importances []float64) ([]Importance, error) {
	if len(names) == 0 {
		return nil, errors.NewValueError("Rank", "no features to rank")
	}
	if len(names) != len(importances) {
		return nil, errors.NewDimensionError("Rank", len(names), len(importances), 0)
	}
	out := make([]Importance, len(names))
	for i, name := range names {
		out[i] = Importance{Feature: name, Value: importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

// FeatureImportancePlot draws a bar chart of the ranked importances.
func FeatureImportancePlot(names []string, importances []float64) (*plot.Plot, error) {
	ranked, err := Rank(names, importances)
	if err != nil {
		return nil, err
	}

	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, r := range ranked {
		values[i] = r.Value
		labels[i] = r.Feature
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "Mean decrease in impurity"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// SaveFeatureImportances writes the chart to path. The format follows the
// file extension (.png, .svg, .pdf, ...).
func SaveFeatureImportances(path string, names []string, importances []float64) error {
	p, err := FeatureImportancePlot(names, importances)
	if err != nil {
		return err
	}
	width := vg.Length(len(names))*vg.Centimeter + 6*vg.Centimeter
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save feature importances to %s", path)
	}
	return nil
}
