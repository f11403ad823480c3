package svm

import (
	"math"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Kernel names accepted by SVC.
const (
	KernelLinear  = "linear"
	KernelRBF     = "rbf"
	KernelPoly    = "poly"
	KernelSigmoid = "sigmoid"
)

// Gamma modes resolved at fit time.
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

// kernelFunc evaluates k(a, b) for two rows.
type kernelFunc func(a, b []float64) float64

func newKernel(name string, gamma, coef0 float64, degree int) (kernelFunc, error) {
	switch name {
	case KernelLinear:
		return func(a, b []float64) float64 { return floats.Dot(a, b) }, nil
	case KernelRBF:
		return func(a, b []float64) float64 {
			var d float64
			for i := range a {
				t := a[i] - b[i]
				d += t * t
			}
			return math.Exp(-gamma * d)
		}, nil
	case KernelPoly:
		return func(a, b []float64) float64 {
			return math.Pow(gamma*floats.Dot(a, b)+coef0, float64(degree))
		}, nil
	case KernelSigmoid:
		return func(a, b []float64) float64 {
			return math.Tanh(gamma*floats.Dot(a, b) + coef0)
		}, nil
	default:
		return nil, errors.NewValidationError("kernel", "must be one of linear, rbf, poly, sigmoid", name)
	}
}

// resolveGamma turns the gamma mode into a value: "scale" is
// 1/(n_features·Var(X)), "auto" is 1/n_features.
func resolveGamma(mode string, value float64, X *mat.Dense) (float64, error) {
	_, f := X.Dims()
	switch mode {
	case "":
		if value <= 0 {
			return 0, errors.NewValidationError("gamma", "must be positive", value)
		}
		return value, nil
	case GammaAuto:
		return 1 / float64(f), nil
	case GammaScale:
		raw := X.RawMatrix()
		var v float64
		if raw.Stride == raw.Cols {
			v = stat.PopVariance(raw.Data[:raw.Rows*raw.Cols], nil)
		} else {
			r, c := X.Dims()
			all := make([]float64, 0, r*c)
			for i := 0; i < r; i++ {
				all = append(all, X.RawRowView(i)...)
			}
			v = stat.PopVariance(all, nil)
		}
		if v == 0 {
			return 1, nil
		}
		return 1 / (float64(f) * v), nil
	default:
		return 0, errors.NewValidationError("gamma", "must be 'scale', 'auto' or a positive float", mode)
	}
}
