package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// passengerRows returns Pclass, Sex (1 = female) and Age with Survived equal to Sex.
// Neither Pclass nor Age separates the classes on its own.
func passengerRows() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 3, []float64{
		1, 1, 29,
		3, 0, 22,
		1, 0, 40,
		2, 1, 35,
		3, 1, 4,
		3, 0, 30,
		2, 0, 54,
		1, 1, 58,
	})
	y := mat.NewDense(8, 1, []float64{1, 0, 0, 1, 1, 0, 0, 1})
	return X, y
}

// alternating returns n rows whose label flips with every row, so only a deep
// tree fits it.
func alternating(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}
	return X, y
}

func walkLeaves(nd *node, fn func(*node)) {
	if nd.isLeaf() {
		fn(nd)
		return
	}
	walkLeaves(nd.left, fn)
	walkLeaves(nd.right, fn)
}

func TestDecisionTree_SplitsOnSex(t *testing.T) {
	for _, criterion := range []string{"gini", "entropy"} {
		t.Run(criterion, func(t *testing.T) {
			X, y := passengerRows()
			dt := NewDecisionTreeClassifier(WithCriterion(criterion))
			require.NoError(t, dt.Fit(X, y))

			assert.Equal(t, 1, dt.GetDepth())
			assert.Equal(t, 2, dt.GetNLeaves())
			assert.Equal(t, []float64{0, 1, 0}, dt.GetFeatureImportances())

			score, err := dt.Score(X, y)
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)

			// 3等客室の女性と1等客室の男性
			pred, err := dt.Predict(mat.NewDense(2, 3, []float64{3, 1, 70, 1, 0, 30}))
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 0}, mat.Col(nil, 0, pred))
		})
	}
}

func TestDecisionTree_KeepsOriginalLabels(t *testing.T) {
	// Pclass from Fare: labels are 1..3, not 0-based
	X := mat.NewDense(9, 1, []float64{7, 8, 9, 20, 22, 25, 80, 90, 100})
	y := mat.NewDense(9, 1, []float64{3, 3, 3, 2, 2, 2, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, []int{1, 2, 3}, dt.Classes())

	XTest := mat.NewDense(3, 1, []float64{8.5, 23, 85})
	pred, err := dt.Predict(XTest)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, mat.Col(nil, 0, pred))

	proba, err := dt.PredictProba(XTest)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.(*mat.Dense).RowView(i)), 1e-12)
	}
}

func TestDecisionTree_MaxDepth(t *testing.T) {
	X, y := alternating(16)

	for _, depth := range []int{1, 2, 3} {
		dt := NewDecisionTreeClassifier(WithMaxDepth(depth))
		require.NoError(t, dt.Fit(X, y))
		assert.LessOrEqual(t, dt.GetDepth(), depth)
		assert.LessOrEqual(t, dt.GetNLeaves(), 1<<depth)
	}

	unlimited := NewDecisionTreeClassifier()
	require.NoError(t, unlimited.Fit(X, y))
	score, err := unlimited.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDecisionTree_MinSamplesLeaf(t *testing.T) {
	X, y := alternating(30)

	tests := []struct {
		name     string
		split    int
		leaf     int
		minCount int
	}{
		{"defaults", 2, 1, 1},
		{"leaf 3", 2, 3, 3},
		{"split 10 leaf 4", 10, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(WithMinSamplesSplit(tt.split), WithMinSamplesLeaf(tt.leaf))
			require.NoError(t, dt.Fit(X, y))
			walkLeaves(dt.root, func(nd *node) {
				assert.GreaterOrEqual(t, nd.nSamples, tt.minCount)
			})
		})
	}
}

func TestDecisionTree_MinImpurityDecrease(t *testing.T) {
	X, y := passengerRows()
	y.Set(1, 0, 1) // 5 survivors, 3 not

	dt := NewDecisionTreeClassifier(WithMinImpurityDecrease(1.0))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 0, dt.GetDepth())
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, []float64{0, 0, 0}, dt.GetFeatureImportances())

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for _, v := range mat.Col(nil, 0, pred) {
		assert.Equal(t, 1.0, v)
	}
}

func TestFitSample_RepeatedRowsWeighLeaves(t *testing.T) {
	// two passengers with identical features and different outcomes
	X := mat.NewDense(2, 1, []float64{0, 0})
	y := mat.NewDense(2, 1, []float64{0, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.FitSample(X, y, []int{0, 1, 1, 1}))

	proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, mat.Row(nil, 0, proba))
}

func TestFitSample_Errors(t *testing.T) {
	X, y := passengerRows()

	err := NewDecisionTreeClassifier().FitSample(X, y, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	err = NewDecisionTreeClassifier().FitSample(X, y, []int{0, 8})
	var valErr *errors.ValueError
	require.True(t, errors.As(err, &valErr), "got %v", err)

	withNaN := mat.DenseCopyOf(X)
	withNaN.Set(2, 2, math.NaN())
	err = NewDecisionTreeClassifier().Fit(withNaN, y)
	require.True(t, errors.As(err, &valErr), "got %v", err)
}

func TestDecisionTree_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X := mat.NewDense(1, 3, []float64{1, 0, 30})

	_, err := dt.Predict(X)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "DecisionTreeClassifier", nf.ModelName)

	_, err = dt.PredictProba(X)
	assert.True(t, errors.As(err, &nf))
}

func TestDecisionTree_Params(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Nil(t, params["max_depth"])
	assert.Nil(t, params["random_state"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":        "entropy",
		"max_depth":        5,
		"min_samples_leaf": 2,
		"max_features":     MaxFeaturesSqrt,
		"random_state":     7,
	}))
	params = dt.GetParams()
	assert.Equal(t, "entropy", params["criterion"])
	assert.Equal(t, 5, params["max_depth"])
	assert.Equal(t, 2, params["min_samples_leaf"])
	assert.Equal(t, MaxFeaturesSqrt, params["max_features"])
	assert.Equal(t, int64(7), params["random_state"])

	require.NoError(t, dt.SetParams(map[string]interface{}{"max_depth": nil, "random_state": nil}))
	assert.Nil(t, dt.GetParams()["max_depth"])
	assert.Nil(t, dt.GetParams()["random_state"])
}

func TestDecisionTree_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"criterion type", "criterion", 3},
		{"min_samples_split too small", "min_samples_split", 1},
		{"min_samples_leaf zero", "min_samples_leaf", 0},
		{"max_features unknown", "max_features", "half"},
		{"negative decrease", "min_impurity_decrease", -0.1},
		{"random_state string", "random_state", "seven"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDecisionTreeClassifier().SetParams(map[string]interface{}{tt.key: tt.value})
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.key, verr.ParamName)
		})
	}
}
