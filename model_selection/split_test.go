package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

func sequentialData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i)*10)
		y.SetVec(i, float64(i%2))
	}
	return X, y
}

func TestSplitSizes(t *testing.T) {
	tests := []struct {
		n         int
		testSize  float64
		wantTrain int
		wantTest  int
	}{
		{100, 0.2, 80, 20},
		{891, 0.2, 712, 179},
		{10, 0.25, 7, 3},
		{3, 0.5, 1, 2},
	}
	for _, tt := range tests {
		nTrain, nTest, err := SplitSizes(tt.n, tt.testSize)
		require.NoError(t, err)
		assert.Equal(t, tt.wantTrain, nTrain, "n=%d test_size=%v", tt.n, tt.testSize)
		assert.Equal(t, tt.wantTest, nTest, "n=%d test_size=%v", tt.n, tt.testSize)
	}
}

func TestValidateTestSize(t *testing.T) {
	for _, bad := range []float64{0, 1, -0.1, 1.5} {
		err := ValidateTestSize(bad)
		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr), "test_size=%v", bad)
		assert.Equal(t, "test_size", verr.ParamName)
	}
	require.NoError(t, ValidateTestSize(0.2))
}

func TestSplitSizes_EmptyTrain(t *testing.T) {
	_, _, err := SplitSizes(1, 0.5)
	require.Error(t, err)
}

func TestTrainTestSplit_Partition(t *testing.T) {
	X, y := sequentialData(100)

	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	require.NoError(t, err)

	rTrain, cTrain := XTrain.Dims()
	rTest, cTest := XTest.Dims()
	assert.Equal(t, 80, rTrain)
	assert.Equal(t, 20, rTest)
	assert.Equal(t, 2, cTrain)
	assert.Equal(t, 2, cTest)
	assert.Equal(t, 80, yTrain.Len())
	assert.Equal(t, 20, yTest.Len())

	// Column 0 carries the original row index: the union must be every row exactly once.
	var ids []int
	for i := 0; i < rTrain; i++ {
		ids = append(ids, int(XTrain.At(i, 0)))
	}
	for i := 0; i < rTest; i++ {
		ids = append(ids, int(XTest.At(i, 0)))
	}
	sort.Ints(ids)
	for i, id := range ids {
		require.Equal(t, i, id)
	}

	// Labels stay aligned with their feature rows.
	for i := 0; i < rTrain; i++ {
		assert.Equal(t, float64(int(XTrain.At(i, 0))%2), yTrain.AtVec(i))
		assert.Equal(t, XTrain.At(i, 0)*10, XTrain.At(i, 1))
	}
	for i := 0; i < rTest; i++ {
		assert.Equal(t, float64(int(XTest.At(i, 0))%2), yTest.AtVec(i))
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := sequentialData(50)

	a, at, _, _, err := TrainTestSplit(X, y, 0.3, 7)
	require.NoError(t, err)
	b, bt, _, _, err := TrainTestSplit(X, y, 0.3, 7)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	assert.True(t, mat.Equal(at, bt))

	c, _, _, _, err := TrainTestSplit(X, y, 0.3, 8)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a, c), "different seeds should give different partitions")
}

func TestTrainTestSplit_Errors(t *testing.T) {
	X, y := sequentialData(10)

	_, _, _, _, err := TrainTestSplit(X, mat.NewVecDense(9, nil), 0.2, 1)
	var dim *errors.DimensionError
	require.True(t, errors.As(err, &dim))

	_, _, _, _, err = TrainTestSplit(X, y, 1.2, 1)
	require.Error(t, err)

	_, _, _, _, err = TrainTestSplit(&mat.Dense{}, y, 0.2, 1)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
