package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/sklearn/ensemble"
)

// ModelConfig holds optional forest hyperparameters. The zero value keeps
// the library defaults: 100 trees, all CPUs, unseeded.
type ModelConfig struct {
	// RandomState seeds the forest. nil leaves training nondeterministic.
	RandomState *int64 `koanf:"random_state"`
	NEstimators int    `koanf:"n_estimators"`
	NJobs       int    `koanf:"n_jobs"`
}

func (c ModelConfig) options() []ensemble.Option {
	var opts []ensemble.Option
	if c.NEstimators > 0 {
		opts = append(opts, ensemble.WithNEstimators(c.NEstimators))
	}
	if c.NJobs != 0 {
		opts = append(opts, ensemble.WithNJobs(c.NJobs))
	}
	if c.RandomState != nil {
		opts = append(opts, ensemble.WithRandomState(*c.RandomState))
	}
	return opts
}

// TrainModel fits a random forest classifier on the training partition.
func TrainModel(XTrain mat.Matrix, yTrain mat.Vector, cfg ModelConfig) (model.Classifier, error) {
	if err := checkTrainingSet(XTrain, yTrain); err != nil {
		return nil, err
	}

	rf := ensemble.NewRandomForestClassifier(cfg.options()...)
	if err := rf.Fit(XTrain, yTrain); err != nil {
		return nil, errors.NewFitError("random forest fit failed", err)
	}
	return rf, nil
}

func checkTrainingSet(X mat.Matrix, y mat.Vector) error {
	if X == nil || y == nil {
		return errors.NewFitError("empty training set", errors.ErrEmptyData)
	}
	n, c := X.Dims()
	if n == 0 || y.Len() == 0 {
		return errors.NewFitError("empty training set", errors.ErrEmptyData)
	}
	if c == 0 {
		return errors.NewFitError("training set has no feature columns", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewFitError("features and labels have different lengths",
			errors.NewDimensionError("TrainModel", n, y.Len(), 0))
	}

	first := y.AtVec(0)
	single := true
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return errors.NewFitError("labels must be integers",
				errors.NewValueError("TrainModel", "class labels must be integers"))
		}
		if v != first {
			single = false
		}
	}
	if single {
		return errors.NewFitError("labels contain a single class", errors.ErrSingleClass)
	}
	return nil
}
