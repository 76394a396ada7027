// Package metrics は二値分類の評価指標を提供する。
//
// 陽性クラスは常に 1、陰性クラスは 0 とする。分母が 0 になる指標は 0.0 を返し、
// errors.UndefinedMetricWarning を警告として発生させる (scikit-learn の zero_division="warn" と同じ挙動)。
package metrics

import (
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PositiveLabel は適合率・再現率・F1 で陽性として扱うラベル
const PositiveLabel = 1.0

// Confusion は二値分類の混同行列
type Confusion struct {
	TN, FP, FN, TP int
}

// Total は集計したサンプル数を返す
func (c Confusion) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// ConfusionMatrix は yTrue と yPred から二値の混同行列を計算する
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (Confusion, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return Confusion{}, err
	}

	var c Confusion
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if !isBinary(t) || !isBinary(p) {
			return Confusion{}, errors.NewValueError("ConfusionMatrix", "labels must be binary (0 or 1)")
		}
		switch {
		case t == PositiveLabel && p == PositiveLabel:
			c.TP++
		case t == PositiveLabel:
			c.FN++
		case p == PositiveLabel:
			c.FP++
		default:
			c.TN++
		}
	}
	return c, nil
}

// PrecisionScore は適合率 TP / (TP + FP) を計算する
func PrecisionScore(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDivide("Precision", "no predicted samples", c.TP, c.TP+c.FP), nil
}

// RecallScore は再現率 TP / (TP + FN) を計算する
func RecallScore(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDivide("Recall", "no true samples", c.TP, c.TP+c.FN), nil
}

// F1Score は適合率と再現率の調和平均を計算する
//
// F1 = 2TP / (2TP + FP + FN)。陽性の正解も陽性の予測も無い場合は 0.0 を返す。
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDivide("F-score", "no true nor predicted samples", 2*c.TP, 2*c.TP+c.FP+c.FN), nil
}

// F1ScoreMatrix は列ベクトル (n×1) の行列形式の入力に対してF1を計算する
func F1ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnPair("F1ScoreMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return F1Score(t, p)
}

// AccuracyScore は予測が正解と一致した割合を計算する。ラベルは二値に限らない。
func AccuracyScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyScoreMatrix は列ベクトルの行列形式の入力に対して正解率を計算する
func AccuracyScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnPair("AccuracyScoreMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AccuracyScore(t, p)
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func columnPair(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	return mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rPred, mat.Col(nil, 0, yPred)), nil
}

func isBinary(v float64) bool {
	return v == 0 || v == PositiveLabel
}

// safeDivide は分母が 0 のとき 0.0 を返し、警告を発生させる
func safeDivide(metric, condition string, num, den int) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return float64(num) / float64(den)
}
