// Package dummy provides baseline classifiers that ignore the features.
package dummy

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DummyClassifier makes predictions from the training label distribution only.
//
// Strategies:
//   - "prior" (default) and "most_frequent": always the most frequent class
//   - "stratified": random draws following the class distribution
//   - "uniform": random draws with equal class probability
type DummyClassifier struct {
	state *model.StateManager

	strategy    string
	randomState *int64

	classes []float64
	prior   []float64
	rng     *rand.Rand
}

// Option configures a DummyClassifier.
type Option func(*DummyClassifier)

// WithStrategy sets the prediction strategy.
func WithStrategy(s string) Option {
	return func(d *DummyClassifier) { d.strategy = s }
}

// WithRandomState fixes the seed of the random strategies.
func WithRandomState(seed int64) Option {
	return func(d *DummyClassifier) { d.randomState = &seed }
}

// NewDummyClassifier creates a DummyClassifier.
func NewDummyClassifier(opts ...Option) *DummyClassifier {
	d := &DummyClassifier{
		state:    model.NewStateManager(),
		strategy: "prior",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the estimator type name.
func (d *DummyClassifier) Name() string { return "DummyClassifier" }

// SetRandomState implements model.Seeded.
func (d *DummyClassifier) SetRandomState(seed int64) { d.randomState = &seed }

// Fit records the class distribution of y.
func (d *DummyClassifier) Fit(X, y mat.Matrix) error {
	switch d.strategy {
	case "prior", "most_frequent", "stratified", "uniform":
	default:
		return errors.NewValidationError("strategy", "must be one of prior, most_frequent, stratified, uniform", d.strategy)
	}

	n, f, err := model.CheckXy("DummyClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	d.classes = model.UniqueClasses(y)
	d.prior = make([]float64, len(d.classes))
	for _, k := range model.EncodeLabels(y, d.classes) {
		d.prior[k]++
	}
	for k := range d.prior {
		d.prior[k] /= float64(n)
	}
	d.rng = random.New(d.randomState)

	d.state.SetDimensions(f, n)
	d.state.SetFitted()
	return nil
}

// Predict returns one label per row of X.
func (d *DummyClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := d.state.RequireFitted("DummyClassifier", "Predict"); err != nil {
		return nil, err
	}
	n, f := X.Dims()
	if err := d.state.CheckFeatures("DummyClassifier.Predict", f); err != nil {
		return nil, err
	}

	out := make([]float64, n)
	switch d.strategy {
	case "prior", "most_frequent":
		best := 0
		for k, p := range d.prior {
			if p > d.prior[best] {
				best = k
			}
		}
		for i := range out {
			out[i] = d.classes[best]
		}
	case "stratified":
		for i := range out {
			u := d.rng.Float64()
			k := 0
			for acc := d.prior[0]; u >= acc && k < len(d.prior)-1; acc += d.prior[k] {
				k++
			}
			out[i] = d.classes[k]
		}
	case "uniform":
		for i := range out {
			out[i] = d.classes[d.rng.IntN(len(d.classes))]
		}
	}
	return model.ColumnOf(out), nil
}

// PredictProba returns the class prior for every row ("prior") or a one-hot
// row for the sampled class otherwise.
func (d *DummyClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := d.state.RequireFitted("DummyClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	proba := mat.NewDense(n, len(d.classes), nil)

	if d.strategy == "prior" {
		for i := 0; i < n; i++ {
			proba.SetRow(i, d.prior)
		}
		return proba, nil
	}

	pred, err := d.Predict(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for k, c := range d.classes {
			if pred.At(i, 0) == c {
				proba.Set(i, k, 1)
			}
		}
	}
	return proba, nil
}

// Classes returns the labels seen during Fit.
func (d *DummyClassifier) Classes() []float64 { return d.classes }

// GetParams returns the hyperparameters.
func (d *DummyClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"strategy":     d.strategy,
		"random_state": random.Param(d.randomState),
	}
}
