package pipeline

import (
	"testing"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/metrics"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/sklearn/dummy"
	"github.com/YuminosukeSato/scibench/sklearn/kernel_approximation"
	"github.com/YuminosukeSato/scibench/sklearn/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.Classifier = (*Pipeline)(nil)
	_ model.Seeded     = (*Pipeline)(nil)
	_ model.Parallel   = (*Pipeline)(nil)
)

func TestPipelineFitPredict(t *testing.T) {
	X, y, err := datasets.MakeClassification(
		datasets.WithNSamples(200), datasets.WithNFeatures(5),
		datasets.WithNClasses(3), datasets.WithNClustersPerClass(1),
		datasets.WithNInformative(3), datasets.WithClassSep(2),
		datasets.WithRandomState(3),
	)
	require.NoError(t, err)

	p := MakePipeline(
		kernel_approximation.NewNystroem(kernel_approximation.WithNystroemGamma(0.1),
			kernel_approximation.WithNystroemComponents(100)),
		svm.NewLinearSVC(svm.WithC(10)),
	)
	p.SetRandomState(0)
	p.SetNJobs(2)
	require.NoError(t, p.Fit(X, y))

	pred, err := p.Predict(X)
	require.NoError(t, err)
	acc, err := metrics.AccuracyScore(y, pred)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.85)
}

func TestPipelineForwardsCapabilities(t *testing.T) {
	ny := kernel_approximation.NewNystroem()
	clf := svm.NewLinearSVC()
	p := MakePipeline(ny, clf)
	p.SetRandomState(42)
	p.SetNJobs(3)

	params := p.GetParams()
	assert.Equal(t, []string{"nystroem", "linearsvc"}, params["steps"])
	assert.Equal(t, int64(42), params["nystroem__random_state"])
	assert.Equal(t, int64(42), params["linearsvc__random_state"])
	assert.Equal(t, 3, params["nystroem__n_jobs"])
	assert.Equal(t, 1.0, params["linearsvc__C"])

	got, ok := p.Step("linearsvc")
	require.True(t, ok)
	assert.Same(t, clf, got)
}

func TestPipelineDuplicateNames(t *testing.T) {
	p := MakePipeline(
		kernel_approximation.NewRBFSampler(),
		kernel_approximation.NewRBFSampler(),
		dummy.NewDummyClassifier(),
	)
	steps := p.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "rbfsampler-1", steps[0].Name)
	assert.Equal(t, "rbfsampler-2", steps[1].Name)
	assert.Equal(t, "dummyclassifier", steps[2].Name)
}

func TestPipelineRejectsMalformedSteps(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	for name, p := range map[string]*Pipeline{
		"empty":           MakePipeline(),
		"classifierFirst": MakePipeline(svm.NewLinearSVC(), svm.NewLinearSVC()),
		"noClassifier":    MakePipeline(kernel_approximation.NewNystroem()),
	} {
		t.Run(name, func(t *testing.T) {
			err := p.Fit(X, y)
			var ve *errors.ValueError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestPipelinePredictProbaRequiresProbabilisticFinal(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	p := MakePipeline(dummy.NewDummyClassifier())
	require.NoError(t, p.Fit(X, y))
	proba, err := p.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)

	p = MakePipeline(svm.NewLinearSVC())
	require.NoError(t, p.Fit(X, y))
	_, err = p.PredictProba(X)
	assert.Error(t, err)
}
