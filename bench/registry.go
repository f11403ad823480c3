// Package bench trains a selection of classifiers on a fixed train/test
// split and reports their training time, prediction time and error rate.
package bench

import (
	"slices"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/sklearn/dummy"
	"github.com/YuminosukeSato/scibench/sklearn/ensemble"
	"github.com/YuminosukeSato/scibench/sklearn/kernel_approximation"
	"github.com/YuminosukeSato/scibench/sklearn/linear_model"
	"github.com/YuminosukeSato/scibench/sklearn/neural_network"
	"github.com/YuminosukeSato/scibench/sklearn/pipeline"
	"github.com/YuminosukeSato/scibench/sklearn/svm"
	"github.com/YuminosukeSato/scibench/sklearn/tree"
)

// Factory builds a freshly configured, unfitted classifier.
type Factory func() model.Classifier

// Entry is a named, pre-configured classifier.
type Entry struct {
	Name string
	New  Factory
}

// Registry is an immutable mapping from entry name to Entry.
type Registry struct {
	entries map[string]Entry
	names   []string
}

// NewRegistry builds a registry. Names must be unique and non-empty.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" || e.New == nil {
			return nil, errors.NewValueError("NewRegistry", "entry needs a name and a factory")
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, errors.NewValueError("NewRegistry", "duplicate entry "+e.Name)
		}
		r.entries[e.Name] = e
		r.names = append(r.names, e.Name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Names returns the entry names in lexicographic order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Validate rejects an empty selection and names absent from the registry.
func (r *Registry) Validate(names []string) error {
	if len(names) == 0 {
		return errors.NewInvalidSelectionError(nil, r.Names())
	}
	var unknown []string
	for _, n := range names {
		if _, ok := r.entries[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return errors.NewInvalidSelectionError(unknown, r.Names())
	}
	return nil
}

// DefaultClassifiers is the selection used when none is given.
var DefaultClassifiers = []string{"extraTrees", "nystroem-svm"}

// DefaultRegistry returns the MNIST benchmark entries.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entry{"dummy", func() model.Classifier { return dummy.NewDummyClassifier() }},
		Entry{"cart", func() model.Classifier { return tree.NewDecisionTreeClassifier() }},
		Entry{"extraTrees", func() model.Classifier {
			return ensemble.NewExtraTreesClassifier(ensemble.WithNEstimators(100))
		}},
		Entry{"randomForest", func() model.Classifier {
			return ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(100))
		}},
		Entry{"nystroem-svm", func() model.Classifier {
			return pipeline.MakePipeline(
				kernel_approximation.NewNystroem(
					kernel_approximation.WithNystroemGamma(0.015),
					kernel_approximation.WithNystroemComponents(1000)),
				svm.NewLinearSVC(svm.WithC(100)),
			)
		}},
		Entry{"sampledRbf-", func() model.Classifier {
			return pipeline.MakePipeline(
				kernel_approximation.NewRBFSampler(
					kernel_approximation.WithRBFGamma(0.015),
					kernel_approximation.WithRBFComponents(1000)),
				svm.NewLinearSVC(svm.WithC(100)),
			)
		}},
		Entry{"LogisticRegression-SAG", func() model.Classifier {
			return linear_model.NewLogisticRegression(
				linear_model.WithLRSolver(linear_model.SolverSAG),
				linear_model.WithLRTol(1e-1), linear_model.WithLRC(1e4))
		}},
		Entry{"LogisticRegression-SAGA", func() model.Classifier {
			return linear_model.NewLogisticRegression(
				linear_model.WithLRSolver(linear_model.SolverSAGA),
				linear_model.WithLRTol(1e-1), linear_model.WithLRC(1e4))
		}},
		Entry{"MultilayerPerceptron", func() model.Classifier {
			return neural_network.NewMLPClassifier(
				neural_network.WithHiddenLayerSizes(100, 100),
				neural_network.WithMaxIter(400), neural_network.WithAlpha(1e-4),
				neural_network.WithSolver("sgd"), neural_network.WithLearningRateInit(0.2),
				neural_network.WithMomentum(0.9), neural_network.WithVerbose(true),
				neural_network.WithTol(1e-4), neural_network.WithRandomState(1))
		}},
		Entry{"MLP-adam", func() model.Classifier {
			return neural_network.NewMLPClassifier(
				neural_network.WithHiddenLayerSizes(100, 100),
				neural_network.WithMaxIter(400), neural_network.WithAlpha(1e-4),
				neural_network.WithSolver("adam"), neural_network.WithLearningRateInit(0.001),
				neural_network.WithVerbose(true),
				neural_network.WithTol(1e-4), neural_network.WithRandomState(1))
		}},
	)
	if err != nil {
		panic(err)
	}
	return r
}
