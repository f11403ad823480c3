package linear_model

import (
	"math"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/metrics"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// maxQRCond を超える条件数ではQRを使わずSVDへフォールバックする
const maxQRCond = 1e12

// LinearRegression is a linear regression model using ordinary least squares
type LinearRegression struct {
	state *model.StateManager // State management (composition instead of embedding)

	// Hyperparameters
	fitIntercept bool // Whether to learn the intercept

	// Learned parameters
	coef      []float64 // Weight coefficients
	intercept float64
	rank      int
	singular  []float64 // 特異値（SVD経路でのみ設定）
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Name returns the estimator type name.
func (lr *LinearRegression) Name() string { return "LinearRegression" }

// Fit はモデルを訓練データで学習
//
// 切片はXとyを中心化して求める。n >= p かつフルランクならQR分解、
// それ以外（特徴量がサンプル数より多い場合など）はSVDによる最小ノルム解
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.CheckXy("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	XWork := mat.DenseCopyOf(X)
	yWork := make([]float64, rows)
	for i := range yWork {
		yWork[i] = y.At(i, 0)
	}

	// 中心化
	xMean := make([]float64, cols)
	var yMean float64
	if lr.fitIntercept {
		for i := 0; i < rows; i++ {
			floats.Add(xMean, XWork.RawRowView(i))
		}
		floats.Scale(1/float64(rows), xMean)
		yMean = floats.Sum(yWork) / float64(rows)
		for i := 0; i < rows; i++ {
			floats.Sub(XWork.RawRowView(i), xMean)
			yWork[i] -= yMean
		}
	}

	yCol := mat.NewDense(rows, 1, yWork)
	coefficients := mat.NewDense(cols, 1, nil)
	lr.singular = nil
	solved := false
	if rows >= cols {
		var qr mat.QR
		qr.Factorize(XWork)
		if qr.Cond() < maxQRCond && qr.SolveTo(coefficients, false, yCol) == nil {
			lr.rank = cols
			solved = true
		}
	}
	if !solved {
		if err := lr.solveSVD(XWork, yCol, coefficients); err != nil {
			return err
		}
	}

	lr.coef = make([]float64, cols)
	for i := range lr.coef {
		lr.coef[i] = coefficients.At(i, 0)
	}
	lr.intercept = 0
	if lr.fitIntercept {
		lr.intercept = yMean - floats.Dot(xMean, lr.coef)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.coef, 0); err != nil {
		return err
	}

	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	return nil
}

// solveSVD はランク落ちを許す最小二乗解を求める
func (lr *LinearRegression) solveSVD(X, y, dst *mat.Dense) error {
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd", errors.ErrSingularMatrix)
	}
	r, c := X.Dims()
	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(r, c))
	lr.rank = svd.Rank(rcond)
	if lr.rank == 0 {
		dst.Zero()
		return nil
	}
	lr.singular = svd.Values(nil)
	svd.SolveTo(dst, y, lr.rank)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := lr.state.CheckFeatures("LinearRegression.Predict", cols); err != nil {
		return nil, err
	}

	predictions := mat.NewVecDense(rows, nil)
	predictions.MulVec(X, mat.NewVecDense(cols, lr.coef))
	for i := 0; i < rows; i++ {
		predictions.SetVec(i, predictions.AtVec(i)+lr.intercept)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, predictions)
}

// Coef は学習された重み係数のコピーを返す
func (lr *LinearRegression) Coef() []float64 {
	if lr.coef == nil {
		return nil
	}
	return append([]float64(nil), lr.coef...)
}

// Intercept は切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// Rank は計画行列（中心化後）のランクを返す
func (lr *LinearRegression) Rank() int {
	return lr.rank
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
	}
}

// SetParams はハイパーパラメータを設定
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return errors.NewValidationError(key, "must be bool", value)
			}
			lr.fitIntercept = v
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}
