// Package pipeline is the split → train → evaluate training pipeline.
//
// Each stage depends only on the previous stage's output. Side effects go
// through an explicit tracking.Sink and, for the Evaluator, an injected
// log.Logger. A failing stage returns before touching the sink, so a run
// either records everything or stops at the first failure.
package pipeline

import (
	"math"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// Record names written to the tracking sink.
const (
	ParamTestSize       = "test_size"
	ParamRandomState    = "random_state"
	MetricF1            = "F1 score"
	ParamPredictionTime = "time of prediction"
)

// LabelColumn is the default label column.
const LabelColumn = "Survived"

// PredictionTimeLayout formats the "time of prediction" parameter.
const PredictionTimeLayout = "2006-01-02 15:04:05.000000"

// Parameters is the key/value configuration handed to the Splitter.
// Both test_size and random_state are required; neither is defaulted.
type Parameters map[string]any

// SplitParams are the validated split settings.
type SplitParams struct {
	TestSize    float64
	RandomState int64
}

// ParseSplitParams validates test_size and random_state.
func ParseSplitParams(params Parameters) (SplitParams, error) {
	raw, ok := params[ParamTestSize]
	if !ok || raw == nil {
		return SplitParams{}, errors.NewConfigurationError(ParamTestSize, "missing required parameter", nil)
	}
	testSize, ok := toFloat(raw)
	if !ok {
		return SplitParams{}, errors.NewConfigurationError(ParamTestSize, "must be a number", raw)
	}
	if math.IsNaN(testSize) || testSize <= 0 || testSize >= 1 {
		return SplitParams{}, errors.NewConfigurationError(ParamTestSize, "must be in the open interval (0, 1)", raw)
	}

	raw, ok = params[ParamRandomState]
	if !ok || raw == nil {
		return SplitParams{}, errors.NewConfigurationError(ParamRandomState, "missing required parameter", nil)
	}
	seed, ok := toInt64(raw)
	if !ok {
		return SplitParams{}, errors.NewConfigurationError(ParamRandomState, "must be an integer", raw)
	}

	return SplitParams{TestSize: testSize, RandomState: seed}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		// YAML and JSON decoders may hand integers over as float64
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
