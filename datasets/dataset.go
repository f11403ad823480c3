package datasets

import (
	"sort"

	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Order is the memory layout of a feature matrix.
type Order string

const (
	// OrderC is row-major storage.
	OrderC Order = "C"
	// OrderF is column-major storage.
	OrderF Order = "F"
)

// ParseOrder validates an --order flag value.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderC, OrderF:
		return Order(s), nil
	}
	return "", errors.NewValidationError("order", "must be one of F, C", s)
}

// DType is the element width features are coerced to.
type DType string

const (
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// ParseDType validates a --dtype flag value.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case Float32, Float64:
		return DType(s), nil
	}
	return "", errors.NewValidationError("dtype", "must be one of float32, float64", s)
}

// ItemSize returns the element width in bytes.
func (d DType) ItemSize() int {
	if d == Float32 {
		return 4
	}
	return 8
}

// Dataset is a fixed train/test split. It is read-only after loading.
type Dataset struct {
	TrainX mat.Matrix
	TrainY *mat.VecDense
	TestX  mat.Matrix
	TestY  *mat.VecDense

	DType DType
	Order Order
}

// Validate checks that labels match feature rows and that train and test
// have the same number of features.
func (d *Dataset) Validate() error {
	trR, trC := d.TrainX.Dims()
	teR, teC := d.TestX.Dims()
	if d.TrainY.Len() != trR {
		return errors.NewDimensionError("Dataset.Validate(train)", trR, d.TrainY.Len(), 0)
	}
	if d.TestY.Len() != teR {
		return errors.NewDimensionError("Dataset.Validate(test)", teR, d.TestY.Len(), 0)
	}
	if trC != teC {
		return errors.NewDimensionError("Dataset.Validate", trC, teC, 1)
	}
	return nil
}

// Stats summarizes a dataset for the report header.
type Stats struct {
	Features   int    `json:"features"`
	Classes    int    `json:"classes"`
	DType      string `json:"dtype"`
	Order      string `json:"order"`
	NTrain     int    `json:"n_train"`
	NTest      int    `json:"n_test"`
	TrainBytes int64  `json:"train_bytes"`
	TestBytes  int64  `json:"test_bytes"`
}

// Stats computes the summary. Byte sizes are for the nominal dtype, which
// is what the data would occupy in that element width.
func (d *Dataset) Stats() Stats {
	trR, c := d.TrainX.Dims()
	teR, _ := d.TestX.Dims()
	item := int64(d.DType.ItemSize())
	return Stats{
		Features:   c,
		Classes:    len(UniqueLabels(d.TrainY)),
		DType:      string(d.DType),
		Order:      string(d.Order),
		NTrain:     trR,
		NTest:      teR,
		TrainBytes: int64(trR) * int64(c) * item,
		TestBytes:  int64(teR) * int64(c) * item,
	}
}

// UniqueLabels returns the distinct values of y in ascending order.
func UniqueLabels(y mat.Vector) []float64 {
	seen := make(map[float64]struct{})
	for i := 0; i < y.Len(); i++ {
		seen[y.AtVec(i)] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
