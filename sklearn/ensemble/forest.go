// Package ensemble implements forests of randomized decision trees.
//
// Trees are fitted and queried on up to n_jobs goroutines. Every tree draws
// its seed from the forest seed before any work is scheduled, so a fitted
// forest does not depend on n_jobs.
package ensemble

import (
	"time"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/parallel"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"github.com/YuminosukeSato/scibench/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// forest is the shared core of RandomForestClassifier and ExtraTreesClassifier.
type forest struct {
	name  string
	state *model.StateManager

	nEstimators     int
	nJobs           int
	randomState     *int64
	bootstrap       bool
	splitter        string
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string

	trees   []*tree.DecisionTreeClassifier
	classes []float64
}

// Option configures a forest.
type Option func(*forest)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(f *forest) { f.nEstimators = n }
}

// WithNJobs sets the number of workers. -1 uses every CPU.
func WithNJobs(n int) Option {
	return func(f *forest) { f.nJobs = n }
}

// WithRandomState fixes the forest seed.
func WithRandomState(seed int64) Option {
	return func(f *forest) { f.randomState = &seed }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) Option {
	return func(f *forest) { f.bootstrap = b }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(c string) Option {
	return func(f *forest) { f.criterion = c }
}

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(f *forest) { f.maxDepth = d }
}

// WithMinSamplesSplit sets min_samples_split of every tree.
func WithMinSamplesSplit(n int) Option {
	return func(f *forest) { f.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf of every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(f *forest) { f.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features drawn per split ("sqrt", "log2" or "" for all).
func WithMaxFeatures(s string) Option {
	return func(f *forest) { f.maxFeatures = s }
}

func newForest(name, splitter string, bootstrap bool, opts []Option) *forest {
	f := &forest{
		name:            name,
		state:           model.NewStateManager(),
		nEstimators:     100,
		nJobs:           1,
		bootstrap:       bootstrap,
		splitter:        splitter,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the estimator type name.
func (f *forest) Name() string { return f.name }

// SetRandomState implements model.Seeded.
func (f *forest) SetRandomState(seed int64) { f.randomState = &seed }

// SetNJobs implements model.Parallel.
func (f *forest) SetNJobs(n int) { f.nJobs = n }

// Fit grows nEstimators trees.
func (f *forest) Fit(X, y mat.Matrix) error {
	if f.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.nEstimators)
	}
	n, nFeatures, err := model.CheckXy(f.name+".Fit", X, y)
	if err != nil {
		return err
	}

	logger := log.GetLogger().With(log.ModelNameKey, f.name)
	start := time.Now()

	Xd := model.AsDense(X)
	classes := model.UniqueClasses(y)
	yEnc := model.EncodeLabels(y, classes)
	seeds := random.Derive(random.New(f.randomState), f.nEstimators)

	trees := make([]*tree.DecisionTreeClassifier, f.nEstimators)
	err = parallel.ForEach(f.nEstimators, f.nJobs, func(t int) error {
		rng := random.New(&seeds[t])
		indices := make([]int, n)
		for i := range indices {
			if f.bootstrap {
				indices[i] = rng.IntN(n)
			} else {
				indices[i] = i
			}
		}

		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(f.criterion),
			tree.WithSplitter(f.splitter),
			tree.WithMaxDepth(f.maxDepth),
			tree.WithMinSamplesSplit(f.minSamplesSplit),
			tree.WithMinSamplesLeaf(f.minSamplesLeaf),
			tree.WithMaxFeatures(f.maxFeatures),
			tree.WithRandomState(rng.Int64()),
		)
		if err := dt.FitIndices(Xd, yEnc, classes, indices); err != nil {
			return errors.Wrapf(err, "tree %d", t)
		}
		trees[t] = dt
		return nil
	})
	if err != nil {
		return err
	}

	f.trees = trees
	f.classes = classes
	f.state.SetDimensions(nFeatures, n)
	f.state.SetFitted()

	logger.Debug("Forest fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, nFeatures,
		log.WorkersKey, parallel.Workers(f.nJobs),
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)
	return nil
}

// PredictProba averages the class probabilities of all trees.
func (f *forest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted(f.name, "PredictProba"); err != nil {
		return nil, err
	}
	n, nFeatures := X.Dims()
	if err := f.state.CheckFeatures(f.name+".PredictProba", nFeatures); err != nil {
		return nil, err
	}

	Xd := model.AsDense(X)
	acc := mat.NewDense(n, len(f.classes), nil)
	parallel.Parallelize(n, f.nJobs, func(start, end int) {
		for _, dt := range f.trees {
			dt.AddProba(Xd, acc, start, end)
		}
	})
	acc.Scale(1/float64(len(f.trees)), acc)
	return acc, nil
}

// Predict returns the class with the highest mean probability.
func (f *forest) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	p := proba.(*mat.Dense)
	n, _ := p.Dims()
	out := make([]float64, n)
	for i := range out {
		row := p.RawRowView(i)
		best := 0
		for k := 1; k < len(row); k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		out[i] = f.classes[best]
	}
	return model.ColumnOf(out), nil
}

// Classes returns the labels seen during Fit.
func (f *forest) Classes() []float64 { return f.classes }

// Estimators returns the fitted trees.
func (f *forest) Estimators() []*tree.DecisionTreeClassifier { return f.trees }

// GetFeatureImportances averages the importances of all trees.
func (f *forest) GetFeatureImportances() []float64 {
	if len(f.trees) == 0 {
		return nil
	}
	out := make([]float64, len(f.trees[0].GetFeatureImportances()))
	for _, dt := range f.trees {
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v / float64(len(f.trees))
		}
	}
	return out
}

// GetParams returns the model hyperparameters
func (f *forest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.nEstimators,
		"n_jobs":            f.nJobs,
		"random_state":      random.Param(f.randomState),
		"bootstrap":         f.bootstrap,
		"criterion":         f.criterion,
		"max_depth":         f.maxDepth,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"max_features":      f.maxFeatures,
	}
}

// RandomForestClassifier fits trees with the best split among a random
// subset of features on bootstrap samples.
type RandomForestClassifier struct {
	*forest
}

// NewRandomForestClassifier creates a forest with 100 trees, bootstrap
// sampling and max_features="sqrt".
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	return &RandomForestClassifier{newForest("RandomForestClassifier", "best", true, opts)}
}

// ExtraTreesClassifier fits extremely randomized trees: random thresholds on
// the full training set.
type ExtraTreesClassifier struct {
	*forest
}

// NewExtraTreesClassifier creates a forest with 100 trees, no bootstrap,
// random splits and max_features="sqrt".
func NewExtraTreesClassifier(opts ...Option) *ExtraTreesClassifier {
	return &ExtraTreesClassifier{newForest("ExtraTreesClassifier", "random", false, opts)}
}
