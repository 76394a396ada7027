// Package model_selection partitions datasets into train and test subsets.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// ValidateTestSize checks that testSize is a fraction strictly between 0 and 1.
func ValidateTestSize(testSize float64) error {
	if math.IsNaN(testSize) || testSize <= 0 || testSize >= 1 {
		return errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}
	return nil
}

// SplitSizes returns the train and test row counts for n samples.
// The test partition gets ceil(testSize * n) rows.
func SplitSizes(n int, testSize float64) (nTrain, nTest int, err error) {
	if err := ValidateTestSize(testSize); err != nil {
		return 0, 0, err
	}
	nTest = int(math.Ceil(testSize * float64(n)))
	nTrain = n - nTest
	if nTest == 0 || nTrain <= 0 {
		return 0, 0, errors.NewValueError("SplitSizes",
			"the resulting train set would be empty; adjust test_size or add samples")
	}
	return nTrain, nTest, nil
}

// SplitIndices shuffles the row indices 0..n-1 with a source seeded by
// randomState and returns the train and test index sets. The same inputs
// always produce the same partition.
func SplitIndices(n int, testSize float64, randomState int64) (train, test []int, err error) {
	_, nTest, err := SplitSizes(n, testSize)
	if err != nil {
		return nil, nil, err
	}
	perm := rand.New(rand.NewSource(randomState)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// TrainTestSplit splits X and y into random train and test subsets.
// Row i of X stays aligned with element i of y in both partitions.
func TrainTestSplit(X mat.Matrix, y mat.Vector, testSize float64, randomState int64) (
	XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error,
) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, nil, nil, nil, errors.WithStack(errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}

	trainIdx, testIdx, err := SplitIndices(n, testSize, randomState)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	XTrain, yTrain = takeRows(X, y, trainIdx)
	XTest, yTest = takeRows(X, y, testIdx)
	return XTrain, XTest, yTrain, yTest, nil
}

func takeRows(X mat.Matrix, y mat.Vector, idx []int) (*mat.Dense, *mat.VecDense) {
	_, c := X.Dims()
	xs := mat.NewDense(len(idx), c, nil)
	ys := mat.NewVecDense(len(idx), nil)
	for i, row := range idx {
		for j := 0; j < c; j++ {
			xs.Set(i, j, X.At(row, j))
		}
		ys.SetVec(i, y.AtVec(row))
	}
	return xs, ys
}
