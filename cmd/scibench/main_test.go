package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scibench/bench"
	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/sklearn/dummy"
)

type echo struct{ answers *mat.VecDense }

func (e *echo) Fit(_, _ mat.Matrix) error { return nil }
func (e *echo) Predict(mat.Matrix) (mat.Matrix, error) {
	return mat.VecDenseCopyOf(e.answers), nil
}

type broken struct{}

func (broken) Fit(_, _ mat.Matrix) error { return errors.New("cannot fit") }
func (broken) Predict(mat.Matrix) (mat.Matrix, error) {
	return nil, errors.New("unreachable")
}

func tinyDataset(cfg datasets.LoadConfig) *datasets.Dataset {
	X := mat.NewDense(10, 3, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
	}
	return &datasets.Dataset{
		TrainX: X,
		TrainY: mat.NewVecDense(10, []float64{0, 0, 0, 0, 0, 0, 0, 1, 1, 2}),
		TestX:  X,
		TestY:  mat.NewVecDense(10, []float64{0, 1, 0, 0, 1, 0, 1, 0, 1, 0}),
		DType:  cfg.DType,
		Order:  cfg.Order,
	}
}

type harness struct {
	app    *app
	out    *bytes.Buffer
	errOut *bytes.Buffer
	loads  []loadOptions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	var ds *datasets.Dataset
	reg, err := bench.NewRegistry(
		bench.Entry{Name: "fast", New: func() model.Classifier {
			return dummy.NewDummyClassifier(dummy.WithStrategy("most_frequent"))
		}},
		bench.Entry{Name: "perfect", New: func() model.Classifier { return &echo{answers: ds.TestY} }},
		bench.Entry{Name: "broken", New: func() model.Classifier { return broken{} }},
	)
	require.NoError(t, err)
	h.app = &app{
		out:      h.out,
		errOut:   h.errOut,
		registry: reg,
		load: func(_ context.Context, opts loadOptions) (*datasets.Dataset, error) {
			h.loads = append(h.loads, opts)
			ds = tinyDataset(opts.cfg)
			return ds, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCmd(h.app)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	return root.ExecuteContext(context.Background())
}

func TestMNISTCommand(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("mnist", "--classifiers", "perfect,fast", "--dtype", "float64", "--order", "F"))

	out := h.out.String()
	assert.Contains(t, out, "MNIST dataset benchmark")
	assert.Contains(t, out, "dataset statistics:\n===================\n")
	assert.Contains(t, out, "number of features:       3\n")
	assert.Contains(t, out, "number of classes:        3\n")
	assert.Contains(t, out, "data type:                float64\n")
	assert.Contains(t, out, "training fast ... done\ntraining perfect ... done\n")
	assert.Contains(t, out, "classification performance:\n===========================\n")

	perfect := strings.Index(out, "\nperfect ")
	fast := strings.Index(out, "\nfast ")
	require.Positive(t, perfect)
	require.Positive(t, fast)
	assert.Less(t, perfect, fast)
	assert.Contains(t, out, "0.4000\n")

	require.Len(t, h.loads, 1)
	assert.Equal(t, datasets.LoadConfig{Order: datasets.OrderF, DType: datasets.Float64}, h.loads[0].cfg)
	assert.Equal(t, datasets.DefaultMNISTURL, h.loads[0].url)
}

func TestMNISTCommandJSON(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("mnist", "--classifiers", "fast", "--json", "--data-home", t.TempDir()))

	out := h.out.String()
	start := strings.LastIndex(out, "\n[")
	require.Positive(t, start)
	var rows []bench.Row
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "fast", rows[0].Name)
	assert.InDelta(t, 0.4, rows[0].ErrorRate, 1e-12)
	assert.NotContains(t, out, "classification performance:")
}

func TestMNISTCommandRejectsUnknownClassifier(t *testing.T) {
	h := newHarness(t)
	err := h.run("mnist", "--classifiers", "fast,ExtraTrees")

	var is *errors.InvalidSelectionError
	require.True(t, errors.As(err, &is))
	assert.Equal(t, []string{"ExtraTrees"}, is.Names)
	assert.Empty(t, h.loads, "selection is rejected before loading")
	assert.Empty(t, h.out.String())
}

func TestMNISTCommandSpaceSeparatedClassifiers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("mnist", "--classifiers", "perfect", "fast"))

	out := h.out.String()
	assert.Contains(t, out, "training fast ... done\ntraining perfect ... done\n")
	assert.Contains(t, out, "\nperfect ")
	assert.Contains(t, out, "\nfast ")
}

func TestMNISTCommandRejectsTrailingUnknownClassifier(t *testing.T) {
	h := newHarness(t)
	err := h.run("mnist", "--classifiers", "perfect", "bogus")

	var is *errors.InvalidSelectionError
	require.True(t, errors.As(err, &is))
	assert.Equal(t, []string{"bogus"}, is.Names)
	assert.Empty(t, h.loads)
	assert.Empty(t, h.out.String())
}

func TestMNISTCommandRejectsBareArguments(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.run("mnist", "fast"))
	assert.Empty(t, h.loads)
}

func TestDemosRejectArguments(t *testing.T) {
	for _, cmd := range []string{"ols", "svm-kernels", "validation-curve"} {
		h := newHarness(t)
		assert.Error(t, h.run(cmd, "extra"), cmd)
		assert.Empty(t, h.out.String(), cmd)
	}
}

func TestMNISTDirOption(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t)
	require.NoError(t, h.run("mnist", "--classifiers", "fast", "--mnist-dir", dir))
	require.Len(t, h.loads, 1)
	assert.Equal(t, dir, h.loads[0].dir)

	assert.Equal(t, datasets.DirSource{Dir: dir}, mnistSource(h.loads[0]))
	_, isHTTP := mnistSource(loadOptions{url: datasets.DefaultMNISTURL}).(*datasets.HTTPSource)
	assert.True(t, isHTTP)
}

func TestMNISTCommandRejectsBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"mnist", "--classifiers", "fast", "--order", "X"},
		{"mnist", "--classifiers", "fast", "--dtype", "int8"},
	} {
		h := newHarness(t)
		err := h.run(args...)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "%v", args)
		assert.Empty(t, h.loads)
	}

	h := newHarness(t)
	root := newRootCmd(h.app)
	root.SetArgs([]string{"--log-level", "loud", "mnist", "--classifiers", "fast"})
	assert.Error(t, root.Execute())
}

func TestMNISTCommandAbortsWithoutTable(t *testing.T) {
	h := newHarness(t)
	err := h.run("mnist", "--classifiers", "fast,broken")

	var ef *errors.EstimatorFailureError
	require.True(t, errors.As(err, &ef))
	assert.Equal(t, "broken", ef.Name)
	assert.Contains(t, h.out.String(), "training broken ... failed\n")
	assert.NotContains(t, h.out.String(), "classification performance:")
	assert.NotContains(t, h.out.String(), "training fast")
}

func TestMNISTCommandLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.app.load = func(context.Context, loadOptions) (*datasets.Dataset, error) {
		return nil, errors.NewDataUnavailableError("mnist", "mirror unreachable", errors.New("offline"))
	}
	err := h.run("mnist", "--classifiers", "fast")
	var du *errors.DataUnavailableError
	assert.True(t, errors.As(err, &du))
	assert.NotContains(t, h.out.String(), "training classifiers")
}

func TestMNISTURLFromEnv(t *testing.T) {
	t.Setenv(mnistURLEnv, "http://mirror.invalid/mnist/")
	h := newHarness(t)
	require.NoError(t, h.run("mnist", "--classifiers", "fast"))
	require.Len(t, h.loads, 1)
	assert.Equal(t, "http://mirror.invalid/mnist/", h.loads[0].url)

	defaults := bench.DefaultConfig()
	assert.Equal(t, datasets.LoadConfig{Order: defaults.Order, DType: defaults.DType}, h.loads[0].cfg)
}

// writeLabelledCSV writes n rows of nFeatures features plus a label column.
// Rows with a positive first feature carry label 1.
func writeLabelledCSV(t *testing.T, n, nFeatures int) string {
	t.Helper()
	var b strings.Builder
	for j := 0; j < nFeatures; j++ {
		fmt.Fprintf(&b, "f%d,", j)
	}
	b.WriteString("label\n")
	for i := 0; i < n; i++ {
		x0 := (float64(i%10) - 4.5) / 10
		label := 0
		if x0 > 0 {
			label = 1
		}
		fmt.Fprintf(&b, "%g", x0)
		for j := 1; j < nFeatures; j++ {
			fmt.Fprintf(&b, ",%g", float64((i*7+j*3)%11)/10)
		}
		fmt.Fprintf(&b, ",%d\n", label)
	}
	path := filepath.Join(t.TempDir(), "labelled.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestOLSCommand(t *testing.T) {
	csvPath := writeLabelledCSV(t, 40, 3)
	plotPath := filepath.Join(t.TempDir(), "ols.png")

	h := newHarness(t)
	require.NoError(t, h.run("ols", "--csv", csvPath, "--rows", "40", "--features", "3", "--label-col", "3", "--plot", plotPath))

	out := h.out.String()
	assert.Contains(t, out, "Coefficients: \n [")
	assert.Contains(t, out, "Mean squared error: ")
	assert.Contains(t, out, "Variance score: ")
	_, err := os.Stat(plotPath)
	assert.NoError(t, err)
}

func TestOLSCommandRequiresCSV(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.run("ols"))
}

func TestSVMKernelsCommand(t *testing.T) {
	csvPath := writeLabelledCSV(t, 50, 2)
	outDir := filepath.Join(t.TempDir(), "kernels")

	h := newHarness(t)
	require.NoError(t, h.run("svm-kernels", "--csv", csvPath, "--rows", "50", "--label-col", "2",
		"--out-dir", outDir, "--grid", "15"))

	for _, k := range []string{"linear", "rbf", "poly"} {
		_, err := os.Stat(filepath.Join(outDir, k+".png"))
		assert.NoError(t, err, k)
		assert.Contains(t, h.out.String(), k)
	}
}

func TestValidationCurveCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 15 SVMs on 1000 samples")
	}
	plotPath := filepath.Join(t.TempDir(), "curve.png")
	h := newHarness(t)
	require.NoError(t, h.run("validation-curve", "--cv", "3", "--n-jobs", "2", "--plot", plotPath))

	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	assert.Len(t, lines, 6)
	_, err := os.Stat(plotPath)
	assert.NoError(t, err)
}

func TestValidationCurveCommandStandardized(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 10 SVMs on 1000 samples")
	}
	h := newHarness(t)
	require.NoError(t, h.run("validation-curve", "--cv", "2", "--standardize", "--plot", ""))
	assert.Len(t, strings.Split(strings.TrimSpace(h.out.String()), "\n"), 6)
}

func TestLogspace(t *testing.T) {
	got := logspace(-6, -1, 5)
	want := []float64{1e-6, 1.7782794100389227e-05, 3.1622776601683794e-04, 5.6234132519034905e-03, 1e-1}
	require.Len(t, got, 5)
	for i := range want {
		assert.InEpsilon(t, want[i], got[i], 1e-9)
	}
}
