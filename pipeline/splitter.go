package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/dataset"
	"github.com/YuminosukeSato/titanic/model_selection"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/tracking"
)

// Split is the Splitter's output. Row i of XTrain belongs with YTrain[i],
// and likewise for the test partition.
type Split struct {
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain *mat.VecDense
	YTest  *mat.VecDense

	// FeatureNames are the feature columns in matrix order.
	FeatureNames []string
}

// SplitOption configures SplitData.
type SplitOption func(*splitOptions)

type splitOptions struct {
	label string
}

// WithLabelColumn overrides the label column name.
func WithLabelColumn(name string) SplitOption {
	return func(o *splitOptions) { o.label = name }
}

// SplitData separates the label column from ds and partitions the rows into
// train and test sets as configured by params. The partition is a
// deterministic function of test_size and random_state. After a successful
// partition it records test_size and random_state to sink, in that order.
func SplitData(ds *dataset.Frame, params Parameters, sink tracking.Sink, opts ...SplitOption) (*Split, error) {
	o := splitOptions{label: LabelColumn}
	for _, opt := range opts {
		opt(&o)
	}

	sp, err := ParseSplitParams(params)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.NewSchemaError(o.label, "no dataset")
	}
	if !ds.HasColumn(o.label) {
		return nil, errors.NewSchemaError(o.label, "label column not found in dataset")
	}

	y, err := ds.Column(o.label)
	if err != nil {
		return nil, err
	}
	features, err := ds.Drop(o.label)
	if err != nil {
		return nil, err
	}

	if _, _, err := model_selection.SplitSizes(ds.NRows(), sp.TestSize); err != nil {
		return nil, errors.NewConfigurationError(ParamTestSize,
			"leaves an empty train or test partition for this dataset", params[ParamTestSize])
	}

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(features.Matrix(), y, sp.TestSize, sp.RandomState)
	if err != nil {
		return nil, errors.Wrap(err, "split dataset")
	}

	if err := sink.LogParam(ParamTestSize, sp.TestSize); err != nil {
		return nil, errors.Wrapf(err, "log param %q", ParamTestSize)
	}
	if err := sink.LogParam(ParamRandomState, sp.RandomState); err != nil {
		return nil, errors.Wrapf(err, "log param %q", ParamRandomState)
	}

	return &Split{
		XTrain:       XTrain,
		XTest:        XTest,
		YTrain:       yTrain,
		YTest:        yTest,
		FeatureNames: features.Columns(),
	}, nil
}
