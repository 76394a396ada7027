package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/metrics"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/pkg/log"
	"github.com/YuminosukeSato/titanic/tracking"
)

// Evaluator scores a fitted model on the held-out partition and reports
// the result to its sink and logger.
type Evaluator struct {
	sink   tracking.Sink
	logger log.Logger
	now    func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock replaces time.Now for the "time of prediction" record.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator returns an Evaluator writing to sink and logger.
func NewEvaluator(sink tracking.Sink, logger log.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{sink: sink, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate predicts XTest, computes the F1 score against yTest with 1 as
// the positive class and records it. Nothing is written when prediction or
// scoring fails.
func (e *Evaluator) Evaluate(m model.Predictor, XTest mat.Matrix, yTest mat.Vector) (float64, error) {
	if m == nil {
		return 0, errors.NewPredictionError("no model to evaluate", nil)
	}
	if XTest == nil || yTest == nil {
		return 0, errors.NewPredictionError("empty test set", errors.ErrEmptyData)
	}
	n, _ := XTest.Dims()
	if n == 0 || yTest.Len() == 0 {
		return 0, errors.NewPredictionError("empty test set", errors.ErrEmptyData)
	}
	if yTest.Len() != n {
		return 0, errors.NewPredictionError("test features and labels have different lengths",
			errors.NewDimensionError("Evaluate", n, yTest.Len(), 0))
	}

	yPred, err := m.Predict(XTest)
	if err != nil {
		return 0, errors.NewPredictionError("model could not predict the test set", err)
	}
	score, err := metrics.F1ScoreMatrix(yTest, yPred)
	if err != nil {
		return 0, errors.NewPredictionError("F1 score could not be computed", err)
	}

	if err := e.sink.LogMetric(MetricF1, score); err != nil {
		return 0, errors.Wrapf(err, "log metric %q", MetricF1)
	}
	predictedAt := e.now().Format(PredictionTimeLayout)
	if err := e.sink.LogParam(ParamPredictionTime, predictedAt); err != nil {
		return 0, errors.Wrapf(err, "log param %q", ParamPredictionTime)
	}

	e.logger.Info(fmt.Sprintf("Model has an F1 score of %.3f.", score),
		log.OperationKey, log.OperationEvaluate,
		log.F1ScoreKey, score,
		log.TestSamplesKey, n,
	)
	return score, nil
}
