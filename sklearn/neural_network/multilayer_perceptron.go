// Package neural_network implements a multi-layer perceptron classifier
// trained with mini-batch SGD or Adam.
package neural_network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MLPClassifier is a feed-forward network with a softmax output (logistic
// for two classes) trained on the cross-entropy loss with an L2 penalty.
type MLPClassifier struct {
	state *model.StateManager

	hiddenLayerSizes []int
	activation       string
	solver           string
	alpha            float64
	batchSize        int // 0 means min(200, n_samples)
	learningRateInit float64
	momentum         float64
	nesterov         bool
	beta1, beta2     float64
	epsilon          float64
	maxIter          int
	tol              float64
	nIterNoChange    int
	shuffle          bool
	randomState      *int64
	verbose          bool

	coefs      []*mat.Dense // fan_in × fan_out per layer
	intercepts [][]float64
	classes    []float64
	nOutputs   int
	lossCurve  []float64
	bestLoss   float64
	nIter      int
}

// Option configures an MLPClassifier.
type Option func(*MLPClassifier)

// WithHiddenLayerSizes sets the width of every hidden layer.
func WithHiddenLayerSizes(sizes ...int) Option {
	return func(m *MLPClassifier) { m.hiddenLayerSizes = append([]int(nil), sizes...) }
}

// WithActivation selects relu, tanh, logistic or identity.
func WithActivation(a string) Option {
	return func(m *MLPClassifier) { m.activation = a }
}

// WithSolver selects sgd or adam.
func WithSolver(s string) Option {
	return func(m *MLPClassifier) { m.solver = s }
}

// WithAlpha sets the L2 penalty.
func WithAlpha(a float64) Option {
	return func(m *MLPClassifier) { m.alpha = a }
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) Option {
	return func(m *MLPClassifier) { m.batchSize = n }
}

// WithLearningRateInit sets the constant learning rate.
func WithLearningRateInit(lr float64) Option {
	return func(m *MLPClassifier) { m.learningRateInit = lr }
}

// WithMomentum sets the SGD momentum.
func WithMomentum(mom float64) Option {
	return func(m *MLPClassifier) { m.momentum = mom }
}

// WithNesterov toggles Nesterov momentum for SGD.
func WithNesterov(b bool) Option {
	return func(m *MLPClassifier) { m.nesterov = b }
}

// WithMaxIter caps the number of epochs.
func WithMaxIter(n int) Option {
	return func(m *MLPClassifier) { m.maxIter = n }
}

// WithTol sets the minimum loss improvement.
func WithTol(tol float64) Option {
	return func(m *MLPClassifier) { m.tol = tol }
}

// WithNIterNoChange sets how many epochs without improvement stop training.
func WithNIterNoChange(n int) Option {
	return func(m *MLPClassifier) { m.nIterNoChange = n }
}

// WithShuffle toggles reshuffling samples every epoch.
func WithShuffle(b bool) Option {
	return func(m *MLPClassifier) { m.shuffle = b }
}

// WithRandomState fixes weight initialization and batch order.
func WithRandomState(seed int64) Option {
	return func(m *MLPClassifier) { m.randomState = &seed }
}

// WithVerbose logs the loss after every epoch.
func WithVerbose(v bool) Option {
	return func(m *MLPClassifier) { m.verbose = v }
}

// NewMLPClassifier creates a network with one hidden layer of 100 relu
// units trained by adam.
func NewMLPClassifier(opts ...Option) *MLPClassifier {
	m := &MLPClassifier{
		state:            model.NewStateManager(),
		hiddenLayerSizes: []int{100},
		activation:       "relu",
		solver:           "adam",
		alpha:            1e-4,
		learningRateInit: 1e-3,
		momentum:         0.9,
		nesterov:         true,
		beta1:            0.9,
		beta2:            0.999,
		epsilon:          1e-8,
		maxIter:          200,
		tol:              1e-4,
		nIterNoChange:    10,
		shuffle:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the estimator type name.
func (m *MLPClassifier) Name() string { return "MLPClassifier" }

// SetRandomState implements model.Seeded.
func (m *MLPClassifier) SetRandomState(seed int64) { m.randomState = &seed }

func (m *MLPClassifier) validate() error {
	for _, h := range m.hiddenLayerSizes {
		if h <= 0 {
			return errors.NewValidationError("hidden_layer_sizes", "must be positive", m.hiddenLayerSizes)
		}
	}
	if m.solver != "sgd" && m.solver != "adam" {
		return errors.NewValidationError("solver", "must be sgd or adam", m.solver)
	}
	if m.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", m.alpha)
	}
	if m.learningRateInit <= 0 {
		return errors.NewValidationError("learning_rate_init", "must be positive", m.learningRateInit)
	}
	if m.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", m.maxIter)
	}
	if m.momentum < 0 || m.momentum > 1 {
		return errors.NewValidationError("momentum", "must be in [0, 1]", m.momentum)
	}
	if m.batchSize < 0 {
		return errors.NewValidationError("batch_size", "must be positive", m.batchSize)
	}
	return nil
}

// Fit trains the network with mini-batches until the loss stops improving
// by tol for n_iter_no_change epochs or max_iter epochs have run.
func (m *MLPClassifier) Fit(X, y mat.Matrix) error {
	if err := m.validate(); err != nil {
		return err
	}
	act, err := lookupActivation(m.activation)
	if err != nil {
		return err
	}
	n, f, err := model.CheckXy("MLPClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) < 2 {
		return errors.NewValueError("MLPClassifier.Fit", "needs samples of at least 2 classes")
	}
	yEnc := model.EncodeLabels(y, classes)

	nOut := len(classes)
	if nOut == 2 {
		nOut = 1
	}
	Y := mat.NewDense(n, nOut, nil)
	for i, k := range yEnc {
		if nOut == 1 {
			Y.Set(i, 0, float64(k))
		} else {
			Y.Set(i, k, 1)
		}
	}

	Xd := model.AsDense(X)
	rng := random.New(m.randomState)
	m.classes = classes
	m.nOutputs = nOut
	m.initialize(f, nOut, rng)

	params := m.paramSlices()
	grads := zerosLike(params)
	var opt optimizer
	if m.solver == "sgd" {
		opt = newSGD(params, m.learningRateInit, m.momentum, m.nesterov)
	} else {
		opt = newAdam(params, m.learningRateInit, m.beta1, m.beta2, m.epsilon)
	}

	batch := m.batchSize
	if batch == 0 {
		batch = min(200, n)
	}
	batch = min(batch, n)

	logger := log.GetLogger().With(log.ModelNameKey, m.Name())
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	m.lossCurve = m.lossCurve[:0]
	m.bestLoss = math.Inf(1)
	noImprovement := 0
	converged := false

	for it := 0; it < m.maxIter; it++ {
		if m.shuffle {
			rng.Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		}
		var accumulated float64
		for start := 0; start < n; start += batch {
			end := min(start+batch, n)
			Xb, Yb := gather(Xd, Y, idx[start:end])
			loss := m.backprop(act, Xb, Yb, grads)
			opt.update(params, grads)
			accumulated += loss * float64(end-start)
		}
		loss := accumulated / float64(n)
		if err := errors.CheckScalar("MLPClassifier.Fit", loss, it); err != nil {
			return err
		}
		m.lossCurve = append(m.lossCurve, loss)
		m.nIter = it + 1
		if m.verbose {
			logger.Info(fmt.Sprintf("Iteration %d, loss = %.8f", it+1, loss),
				log.EpochKey, it+1, log.LossKey, loss)
		}

		if loss > m.bestLoss-m.tol {
			noImprovement++
		} else {
			noImprovement = 0
		}
		if loss < m.bestLoss {
			m.bestLoss = loss
		}
		if noImprovement > m.nIterNoChange {
			if m.verbose {
				logger.Info(fmt.Sprintf("Training loss did not improve more than tol=%f for %d consecutive epochs. Stopping.",
					m.tol, m.nIterNoChange))
			}
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("MLPClassifier", m.maxIter,
			fmt.Sprintf("Stochastic Optimizer: Maximum iterations (%d) reached and the optimization hasn't converged yet.", m.maxIter)))
	}

	m.state.SetDimensions(f, n)
	m.state.SetFitted()
	return nil
}

// initialize draws Glorot-uniform weights and biases.
func (m *MLPClassifier) initialize(nFeatures, nOut int, rng *rand.Rand) {
	sizes := append(append([]int{nFeatures}, m.hiddenLayerSizes...), nOut)
	factor := 6.0
	if m.activation == "logistic" {
		factor = 2.0
	}
	m.coefs = make([]*mat.Dense, len(sizes)-1)
	m.intercepts = make([][]float64, len(sizes)-1)
	for i := 0; i < len(sizes)-1; i++ {
		fanIn, fanOut := sizes[i], sizes[i+1]
		bound := math.Sqrt(factor / float64(fanIn+fanOut))
		u := distuv.Uniform{Min: -bound, Max: bound, Src: rng}
		w := make([]float64, fanIn*fanOut)
		for j := range w {
			w[j] = u.Rand()
		}
		b := make([]float64, fanOut)
		for j := range b {
			b[j] = u.Rand()
		}
		m.coefs[i] = mat.NewDense(fanIn, fanOut, w)
		m.intercepts[i] = b
	}
}

// paramSlices returns views of every coefficient and intercept, in the
// order coef0, intercept0, coef1, ...
func (m *MLPClassifier) paramSlices() [][]float64 {
	out := make([][]float64, 0, 2*len(m.coefs))
	for i, c := range m.coefs {
		out = append(out, c.RawMatrix().Data, m.intercepts[i])
	}
	return out
}

func gather(X, Y *mat.Dense, idx []int) (*mat.Dense, *mat.Dense) {
	_, f := X.Dims()
	_, k := Y.Dims()
	Xb := mat.NewDense(len(idx), f, nil)
	Yb := mat.NewDense(len(idx), k, nil)
	for r, i := range idx {
		copy(Xb.RawRowView(r), X.RawRowView(i))
		copy(Yb.RawRowView(r), Y.RawRowView(i))
	}
	return Xb, Yb
}

// forward returns the activations of every layer, input included.
func (m *MLPClassifier) forward(act activation, X *mat.Dense) []*mat.Dense {
	layers := len(m.coefs)
	acts := make([]*mat.Dense, layers+1)
	acts[0] = X
	for i := 0; i < layers; i++ {
		z := new(mat.Dense)
		z.Mul(acts[i], m.coefs[i])
		raw := z.RawMatrix()
		for r := 0; r < raw.Rows; r++ {
			floats.Add(raw.Data[r*raw.Stride:r*raw.Stride+raw.Cols], m.intercepts[i])
		}
		switch {
		case i < layers-1:
			act.forward(raw.Data)
		case m.nOutputs == 1:
			logistic(raw.Data)
		default:
			softmax(raw.Data, raw.Cols)
		}
		acts[i+1] = z
	}
	return acts
}

// backprop fills grads for one mini-batch and returns its penalized loss.
func (m *MLPClassifier) backprop(act activation, Xb, Yb *mat.Dense, grads [][]float64) float64 {
	bs, _ := Xb.Dims()
	acts := m.forward(act, Xb)
	out := acts[len(acts)-1]

	const eps = 2.220446049250313e-16
	var loss float64
	pr := out.RawMatrix().Data
	yr := Yb.RawMatrix().Data
	for i, p := range pr {
		p = math.Min(math.Max(p, eps), 1-eps)
		if yr[i] > 0 {
			loss -= yr[i] * math.Log(p)
		}
		if m.nOutputs == 1 && yr[i] < 1 {
			loss -= (1 - yr[i]) * math.Log(1-p)
		}
	}
	loss /= float64(bs)

	var sq float64
	for _, c := range m.coefs {
		d := c.RawMatrix().Data
		sq += floats.Dot(d, d)
	}
	loss += 0.5 * m.alpha * sq / float64(bs)

	delta := new(mat.Dense)
	delta.Sub(out, Yb)
	for i := len(m.coefs) - 1; i >= 0; i-- {
		fanIn, fanOut := m.coefs[i].Dims()
		gw := mat.NewDense(fanIn, fanOut, grads[2*i])
		gw.Mul(acts[i].T(), delta)
		w := m.coefs[i].RawMatrix().Data
		g := grads[2*i]
		for j := range g {
			g[j] = (g[j] + m.alpha*w[j]) / float64(bs)
		}

		gb := grads[2*i+1]
		for j := range gb {
			gb[j] = 0
		}
		for r := 0; r < bs; r++ {
			floats.Add(gb, delta.RawRowView(r))
		}
		floats.Scale(1/float64(bs), gb)

		if i > 0 {
			next := new(mat.Dense)
			next.Mul(delta, m.coefs[i].T())
			act.derivative(acts[i].RawMatrix().Data, next.RawMatrix().Data)
			delta = next
		}
	}
	return loss
}

func (m *MLPClassifier) output(X mat.Matrix) (*mat.Dense, error) {
	if err := m.state.RequireFitted("MLPClassifier", "Predict"); err != nil {
		return nil, err
	}
	_, f := X.Dims()
	if err := m.state.CheckFeatures("MLPClassifier.Predict", f); err != nil {
		return nil, err
	}
	act, err := lookupActivation(m.activation)
	if err != nil {
		return nil, err
	}
	acts := m.forward(act, model.AsDense(X))
	return acts[len(acts)-1], nil
}

// Predict returns the most probable class per row.
func (m *MLPClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	out, err := m.output(X)
	if err != nil {
		return nil, err
	}
	r, _ := out.Dims()
	pred := make([]float64, r)
	for i := range pred {
		row := out.RawRowView(i)
		if m.nOutputs == 1 {
			if row[0] > 0.5 {
				pred[i] = m.classes[1]
			} else {
				pred[i] = m.classes[0]
			}
			continue
		}
		pred[i] = m.classes[floats.MaxIdx(row)]
	}
	return model.ColumnOf(pred), nil
}

// PredictProba returns class probabilities, one column per class.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	out, err := m.output(X)
	if err != nil {
		return nil, err
	}
	if m.nOutputs > 1 {
		return out, nil
	}
	r, _ := out.Dims()
	proba := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		p := out.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Classes returns the labels seen during Fit.
func (m *MLPClassifier) Classes() []float64 { return m.classes }

// LossCurve returns the mean training loss of every epoch.
func (m *MLPClassifier) LossCurve() []float64 { return m.lossCurve }

// BestLoss returns the lowest epoch loss.
func (m *MLPClassifier) BestLoss() float64 { return m.bestLoss }

// NIter returns the number of epochs run by the last Fit.
func (m *MLPClassifier) NIter() int { return m.nIter }

// Coefs returns the weight matrices, input layer first.
func (m *MLPClassifier) Coefs() []*mat.Dense { return m.coefs }

// GetParams returns the hyperparameters.
func (m *MLPClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_layer_sizes": append([]int(nil), m.hiddenLayerSizes...),
		"activation":         m.activation,
		"solver":             m.solver,
		"alpha":              m.alpha,
		"batch_size":         m.batchSize,
		"learning_rate":      "constant",
		"learning_rate_init": m.learningRateInit,
		"momentum":           m.momentum,
		"nesterovs_momentum": m.nesterov,
		"beta_1":             m.beta1,
		"beta_2":             m.beta2,
		"epsilon":            m.epsilon,
		"max_iter":           m.maxIter,
		"tol":                m.tol,
		"n_iter_no_change":   m.nIterNoChange,
		"shuffle":            m.shuffle,
		"random_state":       random.Param(m.randomState),
		"verbose":            m.verbose,
	}
}
