// Package log defines standard attribute keys for pipeline operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that records from the split, train and evaluate stages can be filtered
// and joined with tracking records.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "RandomForestClassifier", "DecisionTreeClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "split", "fit", "predict", "evaluate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "pipeline", "ensemble", "tracking"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey record the split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// LabelKey names the label column.
	LabelKey = "data.label"
)

// Performance and Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// F1ScoreKey records the F1 score of an evaluation.
	F1ScoreKey = "metrics.f1_score"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// EstimatorsKey records the number of trees in an ensemble.
	EstimatorsKey = "model.n_estimators"
)

// Configuration
const (
	// TestSizeKey records the configured test fraction.
	TestSizeKey = "config.test_size"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// RunIDKey identifies the tracking run a record belongs to.
	RunIDKey = "tracking.run_id"

	// ExperimentKey identifies the tracking experiment.
	ExperimentKey = "tracking.experiment"

	// BackendKey names the tracking backend ("sqlite", "influxdb", "memory").
	BackendKey = "tracking.backend"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationSplit    = "split"
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
