// Package kernel_approximation maps data into explicit feature spaces that
// approximate a kernel, so that linear models can stand in for kernel
// machines on large datasets.
package kernel_approximation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RBFKernel returns K(X, Y) with K_ij = exp(-gamma ||x_i - y_j||²).
func RBFKernel(X, Y mat.Matrix, gamma float64) *mat.Dense {
	xr, _ := X.Dims()
	yr, _ := Y.Dims()

	var K mat.Dense
	K.Mul(X, Y.T())

	xn := rowSqNorms(X)
	yn := rowSqNorms(Y)
	for i := 0; i < xr; i++ {
		row := K.RawRowView(i)
		for j := 0; j < yr; j++ {
			d := xn[i] + yn[j] - 2*row[j]
			if d < 0 {
				d = 0
			}
			row[j] = math.Exp(-gamma * d)
		}
	}
	return &K
}

func rowSqNorms(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		var s float64
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			s += v * v
		}
		out[i] = s
	}
	return out
}
