package kernel_approximation

import (
	"math"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/parallel"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Nystroem approximates the RBF kernel map from a random subset of the
// training rows. The map is K(x, basis) · K(basis, basis)^-1/2.
type Nystroem struct {
	state *model.StateManager

	gamma       float64
	nComponents int
	randomState *int64
	nJobs       int

	components    *mat.Dense // basis rows
	normalization *mat.Dense // K(basis, basis)^-1/2, symmetric
}

// NystroemOption configures a Nystroem transformer.
type NystroemOption func(*Nystroem)

// WithNystroemGamma sets the RBF kernel parameter.
func WithNystroemGamma(g float64) NystroemOption {
	return func(n *Nystroem) { n.gamma = g }
}

// WithNystroemComponents sets the number of basis rows.
func WithNystroemComponents(c int) NystroemOption {
	return func(n *Nystroem) { n.nComponents = c }
}

// WithNystroemRandomState fixes the seed used to draw the basis.
func WithNystroemRandomState(seed int64) NystroemOption {
	return func(n *Nystroem) { n.randomState = &seed }
}

// WithNystroemNJobs sets the workers used by Transform.
func WithNystroemNJobs(j int) NystroemOption {
	return func(n *Nystroem) { n.nJobs = j }
}

// NewNystroem creates a transformer with an RBF kernel, gamma=1 and 100 components.
func NewNystroem(opts ...NystroemOption) *Nystroem {
	n := &Nystroem{
		state:       model.NewStateManager(),
		gamma:       1.0,
		nComponents: 100,
		nJobs:       1,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the estimator type name.
func (ny *Nystroem) Name() string { return "Nystroem" }

// SetRandomState implements model.Seeded.
func (ny *Nystroem) SetRandomState(seed int64) { ny.randomState = &seed }

// SetNJobs implements model.Parallel.
func (ny *Nystroem) SetNJobs(n int) { ny.nJobs = n }

// Fit draws min(n_samples, n_components) basis rows and computes the
// normalization through an SVD of their kernel matrix.
func (ny *Nystroem) Fit(X mat.Matrix) error {
	n, f := X.Dims()
	if n == 0 || f == 0 {
		return errors.NewValueError("Nystroem.Fit", "empty input data")
	}
	if ny.nComponents < 1 {
		return errors.NewValidationError("n_components", "must be positive", ny.nComponents)
	}
	if ny.gamma <= 0 {
		return errors.NewValidationError("gamma", "must be positive", ny.gamma)
	}

	k := ny.nComponents
	if k > n {
		log.GetLogger().Warn("n_components > n_samples, n_components was set to n_samples",
			log.ModelNameKey, "Nystroem", log.SamplesKey, n)
		k = n
	}

	rng := random.New(ny.randomState)
	inds := rng.Perm(n)[:k]
	basis := mat.NewDense(k, f, nil)
	for r, i := range inds {
		for j := 0; j < f; j++ {
			basis.Set(r, j, X.At(i, j))
		}
	}

	K := RBFKernel(basis, basis, ny.gamma)
	var svd mat.SVD
	if ok := svd.Factorize(K, mat.SVDThin); !ok {
		return errors.NewModelError("Nystroem.Fit", "svd failed", errors.ErrSingularMatrix)
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	S := svd.Values(nil)
	invSqrt := make([]float64, len(S))
	for i, s := range S {
		invSqrt[i] = 1 / math.Sqrt(math.Max(s, 1e-12))
	}

	var US, norm mat.Dense
	US.Mul(&U, mat.NewDiagDense(len(S), invSqrt))
	norm.Mul(&US, V.T())

	ny.components = basis
	ny.normalization = &norm
	ny.state.SetDimensions(f, n)
	ny.state.SetFitted()
	return nil
}

// Transform maps X onto the approximate feature space, in row blocks on
// up to n_jobs workers.
func (ny *Nystroem) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := ny.state.RequireFitted("Nystroem", "Transform"); err != nil {
		return nil, err
	}
	n, f := X.Dims()
	if err := ny.state.CheckFeatures("Nystroem.Transform", f); err != nil {
		return nil, err
	}

	Xd := model.AsDense(X)
	k, _ := ny.components.Dims()
	out := mat.NewDense(n, k, nil)
	parallel.ParallelizeWithThreshold(n, 1000, ny.nJobs, func(start, end int) {
		const block = 2048
		for s := start; s < end; s += block {
			e := min(s+block, end)
			Kb := RBFKernel(Xd.Slice(s, e, 0, f), ny.components, ny.gamma)
			dst := out.Slice(s, e, 0, k).(*mat.Dense)
			dst.Mul(Kb, ny.normalization.T())
		}
	})
	return out, nil
}

// FitTransform fits the transformer and transforms X.
func (ny *Nystroem) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := ny.Fit(X); err != nil {
		return nil, err
	}
	return ny.Transform(X)
}

// Components returns the basis rows drawn by Fit.
func (ny *Nystroem) Components() *mat.Dense { return ny.components }

// GetParams returns the hyperparameters.
func (ny *Nystroem) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel":       "rbf",
		"gamma":        ny.gamma,
		"n_components": ny.nComponents,
		"random_state": random.Param(ny.randomState),
		"n_jobs":       ny.nJobs,
	}
}
