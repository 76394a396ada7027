package pipeline

import (
	"time"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/dataset"
	"github.com/YuminosukeSato/titanic/pkg/log"
	"github.com/YuminosukeSato/titanic/tracking"
)

// Result summarizes a completed run.
type Result struct {
	TrainSamples int
	TestSamples  int
	FeatureNames []string
	Model        model.Classifier
	F1           float64
}

// Run executes split, train and evaluate in order. The first failing stage
// aborts the run and later stages have no side effects.
func Run(ds *dataset.Frame, params Parameters, cfg ModelConfig, sink tracking.Sink, logger log.Logger, opts ...SplitOption) (*Result, error) {
	start := time.Now()
	split, err := SplitData(ds, params, sink, opts...)
	if err != nil {
		return nil, err
	}
	nTrain, _ := split.XTrain.Dims()
	nTest, _ := split.XTest.Dims()
	logger.Debug("dataset split",
		log.OperationKey, log.OperationSplit,
		log.TrainSamplesKey, nTrain,
		log.TestSamplesKey, nTest,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	start = time.Now()
	clf, err := TrainModel(split.XTrain, split.YTrain, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("model trained",
		log.OperationKey, log.OperationFit,
		log.FeaturesKey, len(split.FeatureNames),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	score, err := NewEvaluator(sink, logger).Evaluate(clf, split.XTest, split.YTest)
	if err != nil {
		return nil, err
	}

	return &Result{
		TrainSamples: nTrain,
		TestSamples:  nTest,
		FeatureNames: split.FeatureNames,
		Model:        clf,
		F1:           score,
	}, nil
}
