package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/metrics"
	"github.com/YuminosukeSato/titanic/pkg/errors"
)

// EncodeLabels validates X and the column vector y and maps each label to the
// index of its class in the returned sorted class list.
func EncodeLabels(op string, X, y mat.Matrix) (labels []int, classes []int, err error) {
	return encodeLabels(op, X, y)
}

func encodeLabels(op string, X, y mat.Matrix) ([]int, []int, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError(op, "nil input")
	}
	n, c := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || ry == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}
	if c == 0 {
		return nil, nil, errors.NewValueError(op, "X has no features")
	}
	if cy != 1 {
		return nil, nil, errors.NewValueError(op, "y must be a column vector (n×1 matrix)")
	}
	if ry != n {
		return nil, nil, errors.NewDimensionError(op, n, ry, 0)
	}

	raw := make([]int, n)
	seen := make(map[int]struct{})
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, errors.NewValueError(op, "class labels must be integers")
		}
		raw[i] = int(v)
		seen[raw[i]] = struct{}{}
	}

	classes := make([]int, 0, len(seen))
	for k := range seen {
		classes = append(classes, k)
	}
	sort.Ints(classes)

	pos := make(map[int]int, len(classes))
	for i, k := range classes {
		pos[k] = i
	}
	labels := make([]int, n)
	for i, v := range raw {
		labels[i] = pos[v]
	}
	return labels, classes, nil
}

// ArgmaxLabels converts an n × n_classes probability matrix into an n × 1 matrix
// of class labels. Ties go to the lowest class index.
func ArgmaxLabels(proba mat.Matrix, classes []int) *mat.Dense {
	n, k := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(classes[best]))
	}
	return out
}

func accuracy(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScoreMatrix(y, pred)
}
