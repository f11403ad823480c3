package model

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CheckXy validates a training pair: non-empty X, y an n×1 column with the
// same number of rows, finite values.
func CheckXy(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.NewValueError(op, "empty input data")
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector (n×1 matrix)")
	}
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	for i := 0; i < nSamples; i++ {
		if v := y.At(i, 0); math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, errors.NewValueError(op, "y contains NaN or Inf")
		}
	}
	return nSamples, nFeatures, nil
}

// UniqueClasses returns the sorted distinct labels of the column y.
func UniqueClasses(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	seen := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = struct{}{}
	}
	classes := make([]float64, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes
}

// EncodeLabels maps every label of y to its index in classes.
func EncodeLabels(y mat.Matrix, classes []float64) []int {
	rows, _ := y.Dims()
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	out := make([]int, rows)
	for i := range out {
		out[i] = idx[y.At(i, 0)]
	}
	return out
}

// AsDense returns X as a row-major *mat.Dense, copying only when X is not
// already one. Column-major views are materialized here once, so hot loops
// can index RawRowView.
func AsDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

// ColumnOf wraps values in an n×1 matrix.
func ColumnOf(values []float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}
