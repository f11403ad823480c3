package kernel_approximation

import (
	"math"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RBFSampler approximates the RBF kernel feature map with random Fourier
// features (Rahimi and Recht, 2007).
type RBFSampler struct {
	state *model.StateManager

	gamma       float64
	nComponents int
	randomState *int64

	weights *mat.Dense // n_features × n_components
	offset  []float64
}

// RBFSamplerOption configures an RBFSampler.
type RBFSamplerOption func(*RBFSampler)

// WithRBFGamma sets the kernel parameter.
func WithRBFGamma(g float64) RBFSamplerOption {
	return func(s *RBFSampler) { s.gamma = g }
}

// WithRBFComponents sets the output dimension.
func WithRBFComponents(n int) RBFSamplerOption {
	return func(s *RBFSampler) { s.nComponents = n }
}

// WithRBFRandomState fixes the seed of the random projection.
func WithRBFRandomState(seed int64) RBFSamplerOption {
	return func(s *RBFSampler) { s.randomState = &seed }
}

// NewRBFSampler creates a sampler with gamma=1 and 100 components.
func NewRBFSampler(opts ...RBFSamplerOption) *RBFSampler {
	s := &RBFSampler{
		state:       model.NewStateManager(),
		gamma:       1.0,
		nComponents: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the estimator type name.
func (s *RBFSampler) Name() string { return "RBFSampler" }

// SetRandomState implements model.Seeded.
func (s *RBFSampler) SetRandomState(seed int64) { s.randomState = &seed }

// Fit draws the projection from N(0, 2*gamma) and offsets from U(0, 2π).
// Only the number of features of X is used.
func (s *RBFSampler) Fit(X mat.Matrix) error {
	n, f := X.Dims()
	if n == 0 || f == 0 {
		return errors.NewValueError("RBFSampler.Fit", "empty input data")
	}
	if s.nComponents < 1 {
		return errors.NewValidationError("n_components", "must be positive", s.nComponents)
	}
	if s.gamma <= 0 {
		return errors.NewValidationError("gamma", "must be positive", s.gamma)
	}

	rng := random.New(s.randomState)
	norm := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 * s.gamma), Src: rng}
	unif := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng}

	s.weights = mat.NewDense(f, s.nComponents, nil)
	raw := s.weights.RawMatrix().Data
	for i := range raw {
		raw[i] = norm.Rand()
	}
	s.offset = make([]float64, s.nComponents)
	for i := range s.offset {
		s.offset[i] = unif.Rand()
	}

	s.state.SetDimensions(f, n)
	s.state.SetFitted()
	return nil
}

// Transform returns sqrt(2/n_components) * cos(X W + b).
func (s *RBFSampler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("RBFSampler", "Transform"); err != nil {
		return nil, err
	}
	_, f := X.Dims()
	if err := s.state.CheckFeatures("RBFSampler.Transform", f); err != nil {
		return nil, err
	}

	var Z mat.Dense
	Z.Mul(X, s.weights)
	scale := math.Sqrt(2 / float64(s.nComponents))
	r, _ := Z.Dims()
	for i := 0; i < r; i++ {
		row := Z.RawRowView(i)
		for j := range row {
			row[j] = scale * math.Cos(row[j]+s.offset[j])
		}
	}
	return &Z, nil
}

// FitTransform fits the sampler and transforms X.
func (s *RBFSampler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetParams returns the hyperparameters.
func (s *RBFSampler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"gamma":        s.gamma,
		"n_components": s.nComponents,
		"random_state": random.Param(s.randomState),
	}
}
