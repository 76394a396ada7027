package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier combines the interfaces a fitted classification model exposes
// to the training pipeline.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns an n_samples × n_classes matrix of class probabilities,
	// columns ordered as Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int

	// NFeatures returns the number of features seen during fitting, 0 if unfitted.
	NFeatures() int
}

// FeatureImporter is implemented by models that expose impurity-based importances.
type FeatureImporter interface {
	// FeatureImportances returns one non-negative value per feature, summing to 1.
	FeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}
