package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行い、n×1 の列ベクトルを返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は分類器の基本インターフェース。
// ベンチマークハーネスが扱うのはこの能力集合 {Fit, Predict} のみ
type Classifier interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier はクラス確率を返せる分類器
type ProbabilisticClassifier interface {
	Classifier

	// PredictProba は各クラスの確率を n×nClasses の行列で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に観測したクラスラベルを昇順で返す
	Classes() []float64
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
