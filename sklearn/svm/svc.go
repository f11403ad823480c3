package svm

import (
	"math"
	"slices"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const tau = 1e-12

// binarySVM is one fitted pairwise problem. Decision values above zero vote
// for the second class of the pair.
type binarySVM struct {
	neg, pos int
	sv       *mat.Dense
	dualCoef []float64 // y_i·alpha_i per support vector
	support  []int     // row indices into the training set
	rho      float64
	nIter    int
}

func (b *binarySVM) decision(k kernelFunc, x []float64) float64 {
	var s float64
	for i, c := range b.dualCoef {
		s += c * k(b.sv.RawRowView(i), x)
	}
	return s - b.rho
}

// SVC is a kernel support vector classifier trained with SMO. Multiclass
// problems are decomposed one-vs-one and predicted by voting.
type SVC struct {
	state *model.StateManager

	kernel    string
	C         float64
	gamma     float64
	gammaMode string
	degree    int
	coef0     float64
	tol       float64
	maxIter   int

	kfn     kernelFunc
	gammaV  float64
	classes []float64
	models  []*binarySVM
}

// SVCOption configures an SVC.
type SVCOption func(*SVC)

// WithKernel selects linear, rbf, poly or sigmoid.
func WithKernel(k string) SVCOption {
	return func(s *SVC) { s.kernel = k }
}

// WithSVCC sets the box constraint.
func WithSVCC(c float64) SVCOption {
	return func(s *SVC) { s.C = c }
}

// WithGamma sets a fixed kernel coefficient.
func WithGamma(g float64) SVCOption {
	return func(s *SVC) {
		s.gamma = g
		s.gammaMode = ""
	}
}

// WithGammaMode selects "scale" or "auto".
func WithGammaMode(mode string) SVCOption {
	return func(s *SVC) { s.gammaMode = mode }
}

// WithDegree sets the polynomial degree.
func WithDegree(d int) SVCOption {
	return func(s *SVC) { s.degree = d }
}

// WithCoef0 sets the independent term of poly and sigmoid kernels.
func WithCoef0(c float64) SVCOption {
	return func(s *SVC) { s.coef0 = c }
}

// WithSVCTol sets the KKT violation tolerance.
func WithSVCTol(tol float64) SVCOption {
	return func(s *SVC) { s.tol = tol }
}

// WithSVCMaxIter caps SMO iterations; -1 means no explicit limit.
func WithSVCMaxIter(n int) SVCOption {
	return func(s *SVC) { s.maxIter = n }
}

// NewSVC creates an rbf SVC with C=1, gamma="scale", tol=1e-3.
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{
		state:     model.NewStateManager(),
		kernel:    KernelRBF,
		C:         1.0,
		gammaMode: GammaScale,
		degree:    3,
		tol:       1e-3,
		maxIter:   -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the estimator type name.
func (s *SVC) Name() string { return "SVC" }

// Fit solves one dual problem per class pair.
func (s *SVC) Fit(X, y mat.Matrix) error {
	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	n, f, err := model.CheckXy("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) < 2 {
		return errors.NewValueError("SVC.Fit", "needs samples of at least 2 classes")
	}

	Xd := model.AsDense(X)
	gamma, err := resolveGamma(s.gammaMode, s.gamma, Xd)
	if err != nil {
		return err
	}
	kfn, err := newKernel(s.kernel, gamma, s.coef0, s.degree)
	if err != nil {
		return err
	}
	yEnc := model.EncodeLabels(y, classes)

	byClass := make([][]int, len(classes))
	for i, k := range yEnc {
		byClass[k] = append(byClass[k], i)
	}

	models := make([]*binarySVM, 0, len(classes)*(len(classes)-1)/2)
	for a := 0; a < len(classes); a++ {
		for b := a + 1; b < len(classes); b++ {
			idx := append(append([]int(nil), byClass[a]...), byClass[b]...)
			labels := make([]float64, len(idx))
			for i := range idx {
				if i < len(byClass[a]) {
					labels[i] = -1
				} else {
					labels[i] = 1
				}
			}
			m := s.solve(Xd, idx, labels, kfn)
			m.neg, m.pos = a, b
			models = append(models, m)
		}
	}

	s.kfn = kfn
	s.gammaV = gamma
	s.classes = classes
	s.models = models
	s.state.SetDimensions(f, n)
	s.state.SetFitted()
	return nil
}

// solve runs SMO with second-order working set selection on the rows idx.
func (s *SVC) solve(X *mat.Dense, idx []int, y []float64, kfn kernelFunc) *binarySVM {
	l := len(idx)
	K := make([]float64, l*l)
	for i := 0; i < l; i++ {
		ri := X.RawRowView(idx[i])
		for j := i; j < l; j++ {
			v := kfn(ri, X.RawRowView(idx[j]))
			K[i*l+j] = v
			K[j*l+i] = v
		}
	}
	q := func(i, j int) float64 { return y[i] * y[j] * K[i*l+j] }

	C := s.C
	alpha := make([]float64, l)
	G := make([]float64, l)
	for i := range G {
		G[i] = -1
	}

	limit := s.maxIter
	if limit < 0 {
		limit = max(10_000_000, 100*l)
	}

	iter := 0
	for ; iter < limit; iter++ {
		i, j, ok := s.selectWorkingSet(alpha, G, y, K, l)
		if !ok {
			break
		}

		oldAi, oldAj := alpha[i], alpha[j]
		qij := q(i, j)
		if y[i] != y[j] {
			quad := K[i*l+i] + K[j*l+j] + 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (-G[i] - G[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = C - diff
				}
			} else if alpha[j] > C {
				alpha[j] = C
				alpha[i] = C + diff
			}
		} else {
			quad := K[i*l+i] + K[j*l+j] - 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (G[i] - G[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = sum - C
				}
				if alpha[j] > C {
					alpha[j] = C
					alpha[i] = sum - C
				}
			} else {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = sum
				}
				if alpha[i] < 0 {
					alpha[i] = 0
					alpha[j] = sum
				}
			}
		}

		dAi, dAj := alpha[i]-oldAi, alpha[j]-oldAj
		for k := 0; k < l; k++ {
			G[k] += q(k, i)*dAi + q(k, j)*dAj
		}
	}

	if iter >= limit {
		errors.Warn(errors.NewConvergenceWarning("SVC", iter,
			"Solver terminated early, consider increasing max_iter or scaling the data."))
	}

	m := &binarySVM{rho: computeRho(alpha, G, y, C), nIter: iter}
	for i := 0; i < l; i++ {
		if alpha[i] > 0 {
			m.support = append(m.support, idx[i])
			m.dualCoef = append(m.dualCoef, y[i]*alpha[i])
		}
	}
	_, f := X.Dims()
	m.sv = mat.NewDense(max(len(m.support), 1), f, nil)
	for r, row := range m.support {
		m.sv.SetRow(r, X.RawRowView(row))
	}
	return m
}

// selectWorkingSet picks the maximal violating i and the j with the largest
// second-order decrease. ok is false when the KKT gap is below tol.
func (s *SVC) selectWorkingSet(alpha, G, y, K []float64, l int) (int, int, bool) {
	C := s.C
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := 0; t < l; t++ {
		if y[t] == 1 {
			if alpha[t] < C && -G[t] >= gmax {
				gmax, i = -G[t], t
			}
		} else if alpha[t] > 0 && G[t] >= gmax {
			gmax, i = G[t], t
		}
	}
	if i < 0 {
		return 0, 0, false
	}

	j := -1
	objMin := math.Inf(1)
	for t := 0; t < l; t++ {
		var grad float64
		if y[t] == 1 {
			if alpha[t] <= 0 {
				continue
			}
			grad = G[t]
		} else {
			if alpha[t] >= C {
				continue
			}
			grad = -G[t]
		}
		gmax2 = math.Max(gmax2, grad)
		b := gmax + grad
		if b <= 0 {
			continue
		}
		a := K[i*l+i] + K[t*l+t] - 2*K[i*l+t]
		if a <= 0 {
			a = tau
		}
		if obj := -(b * b) / a; obj <= objMin {
			objMin, j = obj, t
		}
	}

	if gmax+gmax2 < s.tol || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}

func computeRho(alpha, G, y []float64, C float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0
	for i := range alpha {
		yG := y[i] * G[i]
		switch {
		case alpha[i] >= C:
			if y[i] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case alpha[i] <= 0:
			if y[i] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// DecisionFunction returns one column per class pair (n×1 for binary
// problems). Positive values favour the second class of the pair.
func (s *SVC) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("SVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	r, f := X.Dims()
	if err := s.state.CheckFeatures("SVC.DecisionFunction", f); err != nil {
		return nil, err
	}
	Xd := model.AsDense(X)
	out := mat.NewDense(r, len(s.models), nil)
	for i := 0; i < r; i++ {
		x := Xd.RawRowView(i)
		for m, bm := range s.models {
			out.Set(i, m, bm.decision(s.kfn, x))
		}
	}
	return out, nil
}

// Predict votes over all pairwise problems; ties go to the lower class.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, _ := dec.Dims()
	out := make([]float64, r)
	votes := make([]int, len(s.classes))
	for i := 0; i < r; i++ {
		for k := range votes {
			votes[k] = 0
		}
		for m, bm := range s.models {
			if dec.At(i, m) > 0 {
				votes[bm.pos]++
			} else {
				votes[bm.neg]++
			}
		}
		best := 0
		for k := 1; k < len(votes); k++ {
			if votes[k] > votes[best] {
				best = k
			}
		}
		out[i] = s.classes[best]
	}
	return model.ColumnOf(out), nil
}

// Score returns the mean accuracy on X, y.
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if pr, _ := pred.Dims(); pr != r {
		return 0, errors.NewDimensionError("SVC.Score", pr, r, 0)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Support returns the sorted training-row indices of all support vectors.
func (s *SVC) Support() []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range s.models {
		for _, i := range m.support {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Classes returns the labels seen during Fit.
func (s *SVC) Classes() []float64 { return s.classes }

// Gamma returns the kernel coefficient used by the last Fit.
func (s *SVC) Gamma() float64 { return s.gammaV }

// GetParams returns the hyperparameters.
func (s *SVC) GetParams() map[string]interface{} {
	var gamma interface{} = s.gamma
	if s.gammaMode != "" {
		gamma = s.gammaMode
	}
	return map[string]interface{}{
		"kernel":   s.kernel,
		"C":        s.C,
		"gamma":    gamma,
		"degree":   s.degree,
		"coef0":    s.coef0,
		"tol":      s.tol,
		"max_iter": s.maxIter,
	}
}
