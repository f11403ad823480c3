// Package svm implements support vector classifiers: LinearSVC solved by
// dual coordinate descent and kernel SVC solved by SMO.
package svm

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearSVC is a linear support vector classifier with the squared hinge
// loss and L2 penalty, trained one-vs-rest. The intercept is learned as the
// weight of a constant feature of value interceptScaling.
type LinearSVC struct {
	state *model.StateManager

	C                float64
	tol              float64
	maxIter          int
	fitIntercept     bool
	interceptScaling float64
	randomState      *int64

	coef      *mat.Dense // nModels × nFeatures
	intercept []float64
	classes   []float64
	nIter     int
}

// LinearSVCOption configures a LinearSVC.
type LinearSVCOption func(*LinearSVC)

// WithC sets the inverse regularization strength.
func WithC(c float64) LinearSVCOption {
	return func(s *LinearSVC) { s.C = c }
}

// WithTol sets the stopping tolerance on the projected gradient.
func WithTol(tol float64) LinearSVCOption {
	return func(s *LinearSVC) { s.tol = tol }
}

// WithMaxIter caps the number of passes over the data.
func WithMaxIter(n int) LinearSVCOption {
	return func(s *LinearSVC) { s.maxIter = n }
}

// WithFitIntercept toggles the intercept.
func WithFitIntercept(b bool) LinearSVCOption {
	return func(s *LinearSVC) { s.fitIntercept = b }
}

// WithRandomState fixes the seed of the coordinate order.
func WithRandomState(seed int64) LinearSVCOption {
	return func(s *LinearSVC) { s.randomState = &seed }
}

// NewLinearSVC creates a classifier with C=1, tol=1e-4 and max_iter=1000.
func NewLinearSVC(opts ...LinearSVCOption) *LinearSVC {
	s := &LinearSVC{
		state:            model.NewStateManager(),
		C:                1.0,
		tol:              1e-4,
		maxIter:          1000,
		fitIntercept:     true,
		interceptScaling: 1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the estimator type name.
func (s *LinearSVC) Name() string { return "LinearSVC" }

// SetRandomState implements model.Seeded.
func (s *LinearSVC) SetRandomState(seed int64) { s.randomState = &seed }

// Fit trains one binary problem for two classes, one per class otherwise.
func (s *LinearSVC) Fit(X, y mat.Matrix) error {
	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	n, f, err := model.CheckXy("LinearSVC.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) < 2 {
		return errors.NewValueError("LinearSVC.Fit", "needs samples of at least 2 classes")
	}

	Xd := model.AsDense(X)
	yEnc := model.EncodeLabels(y, classes)
	nModels := len(classes)
	if nModels == 2 {
		nModels = 1
	}

	rng := random.New(s.randomState)
	s.coef = mat.NewDense(nModels, f, nil)
	s.intercept = make([]float64, nModels)
	s.nIter = 0

	sq := make([]float64, n)
	for i := 0; i < n; i++ {
		row := Xd.RawRowView(i)
		sq[i] = floats.Dot(row, row)
	}

	yb := make([]float64, n)
	for m := 0; m < nModels; m++ {
		positive := m
		if nModels == 1 {
			positive = 1
		}
		for i, k := range yEnc {
			if k == positive {
				yb[i] = 1
			} else {
				yb[i] = -1
			}
		}
		w := s.coef.RawRowView(m)
		iters := s.solveDual(Xd, sq, yb, w, &s.intercept[m], rng)
		s.nIter = max(s.nIter, iters)
	}

	if s.nIter >= s.maxIter {
		errors.Warn(errors.NewConvergenceWarning("LinearSVC", s.nIter,
			"Liblinear failed to converge, increase the number of iterations."))
	}

	s.classes = classes
	s.state.SetDimensions(f, n)
	s.state.SetFitted()
	return nil
}

// solveDual runs dual coordinate descent with shrinking for the L2-loss
// SVM. w and *b are written in place. Returns the number of passes.
func (s *LinearSVC) solveDual(X *mat.Dense, sq, y, w []float64, b *float64, rng *rand.Rand) int {
	n := len(y)
	diag := 0.5 / s.C
	bias := 0.0
	if s.fitIntercept {
		bias = s.interceptScaling
	}

	alpha := make([]float64, n)
	qd := make([]float64, n)
	for i := range qd {
		qd[i] = sq[i] + bias*bias + diag
	}
	for j := range w {
		w[j] = 0
	}
	wb := 0.0 // weight of the bias feature

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	activeSize := n
	// alpha has no upper bound with the squared hinge, so only the lower
	// bound is shrunk.
	pgMaxOld := math.Inf(1)

	iter := 0
	for iter < s.maxIter {
		pgMaxNew, pgMinNew := math.Inf(-1), math.Inf(1)
		rng.Shuffle(activeSize, func(a, c int) { active[a], active[c] = active[c], active[a] })

		for p := 0; p < activeSize; p++ {
			i := active[p]
			row := X.RawRowView(i)
			g := y[i]*(floats.Dot(w, row)+wb*bias) - 1 + alpha[i]*diag

			pg := 0.0
			if alpha[i] == 0 {
				if g > pgMaxOld {
					activeSize--
					active[p], active[activeSize] = active[activeSize], active[p]
					p--
					continue
				}
				if g < 0 {
					pg = g
				}
			} else {
				pg = g
			}
			pgMaxNew = math.Max(pgMaxNew, pg)
			pgMinNew = math.Min(pgMinNew, pg)

			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Max(alpha[i]-g/qd[i], 0)
				d := (alpha[i] - old) * y[i]
				floats.AddScaled(w, d, row)
				wb += d * bias
			}
		}
		iter++

		if pgMaxNew-pgMinNew <= s.tol {
			if activeSize == n {
				break
			}
			activeSize = n
			pgMaxOld = math.Inf(1)
			continue
		}
		pgMaxOld = pgMaxNew
		if pgMaxOld <= 0 {
			pgMaxOld = math.Inf(1)
		}
	}

	*b = wb * bias
	return iter
}

// DecisionFunction returns the signed scores: n×1 for two classes, one
// column per class otherwise.
func (s *LinearSVC) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("LinearSVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	_, f := X.Dims()
	if err := s.state.CheckFeatures("LinearSVC.DecisionFunction", f); err != nil {
		return nil, err
	}

	var scores mat.Dense
	scores.Mul(X, s.coef.T())
	r, c := scores.Dims()
	for i := 0; i < r; i++ {
		row := scores.RawRowView(i)
		for m := 0; m < c; m++ {
			row[m] += s.intercept[m]
		}
	}
	return &scores, nil
}

// Predict returns the class with the highest decision value.
func (s *LinearSVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, c := scores.Dims()
	out := make([]float64, r)
	for i := range out {
		row := scores.RawRowView(i)
		if c == 1 {
			if row[0] > 0 {
				out[i] = s.classes[1]
			} else {
				out[i] = s.classes[0]
			}
			continue
		}
		out[i] = s.classes[floats.MaxIdx(row)]
	}
	return model.ColumnOf(out), nil
}

// Coef returns the weights, one row per binary problem.
func (s *LinearSVC) Coef() *mat.Dense { return s.coef }

// Intercept returns the intercepts, one per binary problem.
func (s *LinearSVC) Intercept() []float64 { return s.intercept }

// Classes returns the labels seen during Fit.
func (s *LinearSVC) Classes() []float64 { return s.classes }

// NIter returns the maximum number of passes over all binary problems.
func (s *LinearSVC) NIter() int { return s.nIter }

// GetParams returns the hyperparameters.
func (s *LinearSVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":                 s.C,
		"loss":              "squared_hinge",
		"penalty":           "l2",
		"dual":              true,
		"tol":               s.tol,
		"max_iter":          s.maxIter,
		"fit_intercept":     s.fitIntercept,
		"intercept_scaling": s.interceptScaling,
		"multi_class":       "ovr",
		"random_state":      random.Param(s.randomState),
	}
}
