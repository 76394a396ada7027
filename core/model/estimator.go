// Package model は推定器の共通インターフェースと学習状態の管理を提供します。
//
// 特徴量は行列 X (n_samples × n_features)、ラベルは列ベクトル y (n_samples × 1) として
// mat.Matrix で受け渡します。*mat.VecDense はそのまま y として渡せます。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測ラベルを n_samples × 1 の行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は正解率 (accuracy) を返す
	Score(X, y mat.Matrix) (float64, error)
}
