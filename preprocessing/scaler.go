// Package preprocessing provides feature transformers that can lead a
// pipeline.
package preprocessing

import (
	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	withMean bool
	withStd  bool

	mean  []float64
	scale []float64
}

// ScalerOption configures a StandardScaler.
type ScalerOption func(*StandardScaler)

// WithMean toggles centring (default true).
func WithMean(on bool) ScalerOption {
	return func(s *StandardScaler) { s.withMean = on }
}

// WithStd toggles division by the standard deviation (default true).
func WithStd(on bool) ScalerOption {
	return func(s *StandardScaler) { s.withStd = on }
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler()
//	Xs, err := scaler.FitTransform(X)
func NewStandardScaler(opts ...ScalerOption) *StandardScaler {
	s := &StandardScaler{state: model.NewStateManager(), withMean: true, withStd: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the estimator type name.
func (s *StandardScaler) Name() string { return "StandardScaler" }

// Fit は各特徴量の平均と母標準偏差を計算する
// 分散がほぼ0の列はスケール1のまま残す
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.mean = make([]float64, c)
	s.scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m, sd := stat.PopMeanStdDev(col, nil)
		if s.withMean {
			s.mean[j] = m
		}
		s.scale[j] = 1
		if s.withStd && sd >= 1e-8 {
			s.scale[j] = sd
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計量でデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, X)
	return out, nil
}

// FitTransform は Fit の後に同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("StandardScaler.InverseTransform", c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v*s.scale[j] + s.mean[j]
	}, X)
	return out, nil
}

// Mean returns the fitted per-feature means (zeros when centring is off).
func (s *StandardScaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Scale returns the fitted per-feature divisors.
func (s *StandardScaler) Scale() []float64 { return append([]float64(nil), s.scale...) }

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.withMean,
		"with_std":  s.withStd,
	}
}
