// Package model_selection provides train/test splitting, k-fold
// splitters and validation curves.
package model_selection

import (
	"math"
	"slices"

	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X, y mat.Matrix) []CVFold
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed *int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed *int64) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n%k folds
// get one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := random.New(kf.RandomSeed)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		testIndices := slices.Clone(indices[currentIdx : currentIdx+testSize])
		trainIndices := make([]int, 0, nSamples-testSize)
		trainIndices = append(trainIndices, indices[:currentIdx]...)
		trainIndices = append(trainIndices, indices[currentIdx+testSize:]...)

		folds[i] = CVFold{TrainIndices: trainIndices, TestIndices: testIndices}
		currentIdx += testSize
	}
	return folds
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed *int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed *int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold. Every class
// is dealt across folds the way KFold deals samples; indices within a fold
// are ascending.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	// Group indices by class, classes in ascending order
	classIndices := make(map[float64][]int)
	var labels []float64
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		if _, ok := classIndices[label]; !ok {
			labels = append(labels, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}
	slices.Sort(labels)

	if skf.Shuffle {
		r := random.New(skf.RandomSeed)
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	testFold := make([]int, nSamples)
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		currentIdx := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			for j := 0; j < testSize; j++ {
				testFold[indices[currentIdx]] = i
				currentIdx++
			}
		}
	}

	folds := make([]CVFold, skf.NSplits)
	for i := range folds {
		for j := 0; j < nSamples; j++ {
			if testFold[j] == i {
				folds[i].TestIndices = append(folds[i].TestIndices, j)
			} else {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}
	return folds
}

// Subset extracts the rows of X and y at indices, in the given order
func Subset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.VecDense) {
	_, xCols := X.Dims()
	xSubset := mat.NewDense(len(indices), xCols, nil)
	ySubset := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		ySubset.SetVec(i, y.At(idx, 0))
	}
	return xSubset, ySubset
}

// Split holds the four parts returned by TrainTestSplit.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense

	// row positions in the original X
	TrainIndices, TestIndices []int
}

// TrainTestSplit shuffles the rows and holds out ceil(testSize·n) of them
// for testing. testSize must lie in (0, 1).
func TrainTestSplit(X, y mat.Matrix, testSize float64, randomState *int64) (*Split, error) {
	n, _ := X.Dims()
	yr, yc := y.Dims()
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	if yr != n || yc != 1 {
		return nil, errors.NewDimensionError("TrainTestSplit", n, yr, 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves no training samples")
	}

	perm := random.New(randomState).Perm(n)
	s := &Split{TrainIndices: perm[nTest:], TestIndices: perm[:nTest]}
	s.XTest, s.YTest = Subset(X, y, perm[:nTest])
	s.XTrain, s.YTrain = Subset(X, y, perm[nTest:])
	return s, nil
}
