package linear_model

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/parallel"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solver names accepted by LogisticRegression.
const (
	SolverGD   = "gd"
	SolverSAG  = "sag"
	SolverSAGA = "saga"
)

// LogisticRegression implements L2-regularized logistic regression.
// Multiclass problems are solved one-vs-rest, one binary problem per class,
// on up to n_jobs workers.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  *int64  // Seed of the sample order for sag/saga
	solver       string  // Solver: "gd", "sag", "saga"
	maxIter      int     // Maximum epochs
	tol          float64 // Tolerance for stopping
	nJobs        int     // Workers for one-vs-rest

	// Model parameters
	coef      *mat.Dense // 1 x n_features for binary, n_classes x n_features otherwise
	intercept []float64
	classes   []float64
	nIter     []int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		solver:       SolverGD,
		maxIter:      100,
		tol:          1e-4,
		nJobs:        1,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.solver = solver
	}
}

// WithLRMaxIter sets the maximum number of epochs
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = &seed
	}
}

// WithLRNJobs sets the number of one-vs-rest workers
func WithLRNJobs(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.nJobs = n
	}
}

// Name returns the estimator type name.
func (lr *LogisticRegression) Name() string { return "LogisticRegression" }

// SetRandomState implements model.Seeded.
func (lr *LogisticRegression) SetRandomState(seed int64) { lr.randomState = &seed }

// SetNJobs implements model.Parallel.
func (lr *LogisticRegression) SetNJobs(n int) { lr.nJobs = n }

func (lr *LogisticRegression) validate() error {
	switch lr.solver {
	case SolverGD, SolverSAG, SolverSAGA:
	default:
		return errors.NewValidationError("solver", "must be one of gd, sag, saga", lr.solver)
	}
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	return nil
}

// binaryProblem is the data shared by every one-vs-rest sub-problem.
type binaryProblem struct {
	X        *mat.Dense
	alpha    float64 // L2 strength on the mean loss
	step     float64
	maxSqSum float64
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXy("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "needs samples of at least 2 classes")
	}
	yEnc := model.EncodeLabels(y, classes)

	Xd := model.AsDense(X)
	prob := &binaryProblem{X: Xd}
	if lr.penalty == "l2" {
		prob.alpha = 1 / (lr.C * float64(nSamples))
	}
	for i := 0; i < nSamples; i++ {
		row := Xd.RawRowView(i)
		prob.maxSqSum = math.Max(prob.maxSqSum, floats.Dot(row, row))
	}
	prob.step = lr.stepSize(prob, nSamples)

	nModels := len(classes)
	if nModels == 2 {
		nModels = 1
	}
	lr.coef = mat.NewDense(nModels, nFeatures, nil)
	lr.intercept = make([]float64, nModels)
	lr.nIter = make([]int, nModels)

	seeds := random.Derive(random.New(lr.randomState), nModels)
	err = parallel.ForEach(nModels, lr.nJobs, func(m int) error {
		positive := m
		if nModels == 1 {
			positive = 1
		}
		target := make([]float64, nSamples)
		for i, k := range yEnc {
			if k == positive {
				target[i] = 1
			}
		}
		rng := random.New(&seeds[m])
		iters, err := lr.fitBinary(prob, target, lr.coef.RawRowView(m), &lr.intercept[m], rng)
		lr.nIter[m] = iters
		return err
	})
	if err != nil {
		return err
	}

	maxIter := 0
	for _, it := range lr.nIter {
		maxIter = max(maxIter, it)
	}
	if maxIter >= lr.maxIter {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression/"+lr.solver, maxIter,
			"The max_iter was reached which means the coef_ did not converge"))
	}

	lr.classes = classes
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// stepSize follows the automatic step of the stochastic average gradient
// solvers: 1/L for sag and 1/(2L+min(2nα, L)) for saga, where L bounds the
// Lipschitz constant of the per-sample log loss.
func (lr *LogisticRegression) stepSize(p *binaryProblem, n int) float64 {
	fi := 0.0
	if lr.fitIntercept {
		fi = 1
	}
	L := 0.25*(p.maxSqSum+fi) + p.alpha
	if lr.solver == SolverSAGA {
		mun := math.Min(2*float64(n)*p.alpha, L)
		return 1 / (2*L + mun)
	}
	return 1 / L
}

func (lr *LogisticRegression) fitBinary(p *binaryProblem, y, w []float64, b *float64, rng *rand.Rand) (int, error) {
	if lr.solver == SolverGD {
		return lr.fitGD(p, y, w, b)
	}
	return lr.fitSAG(p, y, w, b, rng)
}

// fitGD runs full-batch gradient descent until the largest gradient
// component falls below tol.
func (lr *LogisticRegression) fitGD(p *binaryProblem, y, w []float64, b *float64) (int, error) {
	n, f := p.X.Dims()
	grad := make([]float64, f)
	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range grad {
			grad[j] = p.alpha * w[j]
		}
		gradB := 0.0
		for i := 0; i < n; i++ {
			row := p.X.RawRowView(i)
			e := (sigmoid(floats.Dot(w, row)+*b) - y[i]) / float64(n)
			floats.AddScaled(grad, e, row)
			gradB += e
		}

		floats.AddScaled(w, -p.step, grad)
		if lr.fitIntercept {
			*b -= p.step * gradB
		}
		if err := errors.CheckScalar("LogisticRegression.gd", *b, iter); err != nil {
			return iter + 1, err
		}

		maxGrad := math.Max(math.Abs(gradB), floats.Norm(grad, math.Inf(1)))
		if maxGrad < lr.tol {
			return iter + 1, nil
		}
	}
	return lr.maxIter, nil
}

// fitSAG runs the stochastic average gradient (sag) or its unbiased
// variant (saga). A table holds the last gradient seen for every sample.
func (lr *LogisticRegression) fitSAG(p *binaryProblem, y, w []float64, b *float64, rng *rand.Rand) (int, error) {
	n, f := p.X.Dims()
	memory := make([]float64, n)
	seen := make([]bool, n)
	nSeen := 0
	sumGrad := make([]float64, f)
	sumGradB := 0.0
	prev := make([]float64, f+1)
	saga := lr.solver == SolverSAGA

	for epoch := 0; epoch < lr.maxIter; epoch++ {
		copy(prev, w)
		prev[f] = *b

		for k := 0; k < n; k++ {
			i := rng.IntN(n)
			row := p.X.RawRowView(i)
			g := sigmoid(floats.Dot(w, row)+*b) - y[i]
			if !seen[i] {
				seen[i] = true
				nSeen++
			}
			corr := g - memory[i]
			memory[i] = g

			floats.Scale(1-p.step*p.alpha, w)
			if saga {
				// w -= step*(corr*x_i + mean of the old table)
				floats.AddScaled(w, -p.step*corr, row)
				floats.AddScaled(w, -p.step/float64(nSeen), sumGrad)
				if lr.fitIntercept {
					*b -= p.step * (corr + sumGradB/float64(nSeen))
				}
			}
			floats.AddScaled(sumGrad, corr, row)
			sumGradB += corr
			if !saga {
				floats.AddScaled(w, -p.step/float64(nSeen), sumGrad)
				if lr.fitIntercept {
					*b -= p.step * sumGradB / float64(nSeen)
				}
			}
		}

		if err := errors.CheckNumericalStability("LogisticRegression."+lr.solver, w, epoch); err != nil {
			return epoch + 1, err
		}

		var maxChange, maxWeight float64
		for j := 0; j < f; j++ {
			maxChange = math.Max(maxChange, math.Abs(w[j]-prev[j]))
			maxWeight = math.Max(maxWeight, math.Abs(w[j]))
		}
		maxChange = math.Max(maxChange, math.Abs(*b-prev[f]))
		maxWeight = math.Max(maxWeight, math.Abs(*b))
		if maxWeight == 0 || maxChange/maxWeight <= lr.tol {
			return epoch + 1, nil
		}
	}
	return lr.maxIter, nil
}

// DecisionFunction returns X·coefᵀ + intercept, one column per problem.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	_, f := X.Dims()
	if err := lr.state.CheckFeatures("LogisticRegression.DecisionFunction", f); err != nil {
		return nil, err
	}
	var scores mat.Dense
	scores.Mul(X, lr.coef.T())
	r, c := scores.Dims()
	for i := 0; i < r; i++ {
		row := scores.RawRowView(i)
		for m := 0; m < c; m++ {
			row[m] += lr.intercept[m]
		}
	}
	return &scores, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, c := scores.Dims()
	out := make([]float64, r)
	for i := range out {
		row := scores.RawRowView(i)
		if c == 1 {
			if row[0] > 0 {
				out[i] = lr.classes[1]
			} else {
				out[i] = lr.classes[0]
			}
			continue
		}
		out[i] = lr.classes[floats.MaxIdx(row)]
	}
	return model.ColumnOf(out), nil
}

// PredictProba returns probability estimates for each class. One-vs-rest
// sigmoids are normalized to sum to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, c := scores.Dims()
	probas := mat.NewDense(r, len(lr.classes), nil)
	for i := 0; i < r; i++ {
		s := scores.RawRowView(i)
		out := probas.RawRowView(i)
		if c == 1 {
			p1 := sigmoid(s[0])
			out[0], out[1] = 1-p1, p1
			continue
		}
		for k := range out {
			out[k] = sigmoid(s[k])
		}
		floats.Scale(1/floats.Sum(out), out)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Coef returns the fitted weights, one row per binary problem.
func (lr *LogisticRegression) Coef() *mat.Dense { return lr.coef }

// Intercept returns the fitted intercepts.
func (lr *LogisticRegression) Intercept() []float64 { return lr.intercept }

// Classes returns the labels seen during Fit.
func (lr *LogisticRegression) Classes() []float64 { return lr.classes }

// NIter returns the epochs used per binary problem.
func (lr *LogisticRegression) NIter() []int { return lr.nIter }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  random.Param(lr.randomState),
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"multi_class":   "ovr",
		"tol":           lr.tol,
		"n_jobs":        lr.nJobs,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "random_state":
			var seed int64
			if seed, ok = value.(int64); ok {
				lr.randomState = &seed
			}
		case "solver":
			lr.solver, ok = value.(string)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		case "n_jobs":
			lr.nJobs, ok = value.(int)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
