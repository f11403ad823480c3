package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/metrics"
	"github.com/YuminosukeSato/scibench/pkg/chart"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"github.com/YuminosukeSato/scibench/preprocessing"
	"github.com/YuminosukeSato/scibench/sklearn/linear_model"
	"github.com/YuminosukeSato/scibench/sklearn/model_selection"
	"github.com/YuminosukeSato/scibench/sklearn/pipeline"
	"github.com/YuminosukeSato/scibench/sklearn/svm"
)

// csvFlags selects the window of the labelled CSV the demos read.
type csvFlags struct {
	path     string
	rows     int
	features int
	labelCol int
}

func (f *csvFlags) register(cmd *cobra.Command, features int) {
	flags := cmd.Flags()
	flags.StringVar(&f.path, "csv", "", "Labelled CSV file (header row required)")
	flags.IntVar(&f.rows, "rows", 100, "Number of data rows to read")
	flags.IntVar(&f.features, "features", features, "Number of leading feature columns")
	flags.IntVar(&f.labelCol, "label-col", 110, "Column holding the label")
	_ = cmd.MarkFlagRequired("csv")
}

// load reads the window and maps label 1 to +1 and everything else to -1.
func (f *csvFlags) load() (*mat.Dense, *mat.VecDense, error) {
	X, y, err := datasets.LoadCSV(f.path, datasets.CSVOptions{
		Header:   true,
		RowEnd:   f.rows,
		ColEnd:   f.features,
		LabelCol: f.labelCol,
	})
	if err != nil {
		return nil, nil, err
	}
	return X, datasets.BinarizeLabels(y, 1), nil
}

func newOLSCmd() *cobra.Command {
	var (
		data     csvFlags
		plotPath string
	)
	cmd := &cobra.Command{
		Use:   "ols",
		Args:  cobra.NoArgs,
		Short: "Least-squares fit on a labelled CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			X, y, err := data.load()
			if err != nil {
				return err
			}
			split, err := model_selection.TrainTestSplit(X, y, 0.2, random.Seed(0))
			if err != nil {
				return err
			}

			regr := linear_model.NewLinearRegression()
			if err := regr.Fit(split.XTrain, split.YTrain); err != nil {
				return err
			}
			pred, err := regr.Predict(split.XTest)
			if err != nil {
				return err
			}
			mse, err := metrics.MSEMatrix(split.YTest, pred)
			if err != nil {
				return err
			}
			r2, err := regr.Score(split.XTest, split.YTest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Coefficients: \n %v\n", regr.Coef())
			fmt.Fprintf(out, "Mean squared error: %.2f\n", mse)
			fmt.Fprintf(out, "Variance score: %.2f\n", r2)

			if plotPath == "" {
				return nil
			}
			if err := chart.RegressionLine(plotPath, mat.Col(nil, 0, split.XTest), mat.Col(nil, 0, pred)); err != nil {
				return err
			}
			log.GetLogger().Info("Plot written", "path", plotPath)
			return nil
		},
	}
	data.register(cmd, 110)
	cmd.Flags().StringVar(&plotPath, "plot", "", "Write the fitted line against the first feature to this image")
	return cmd
}

func newSVMKernelsCmd() *cobra.Command {
	var (
		data   csvFlags
		outDir string
		gamma  float64
		steps  int
	)
	cmd := &cobra.Command{
		Use:   "svm-kernels",
		Args:  cobra.NoArgs,
		Short: "Decision surfaces of linear, rbf and poly SVMs on two features",
		RunE: func(cmd *cobra.Command, _ []string) error {
			X, y, err := data.load()
			if err != nil {
				return err
			}
			split, err := model_selection.TrainTestSplit(X, y, 0.2, random.Seed(42))
			if err != nil {
				return err
			}
			n, _ := X.Dims()
			testMask := make([]bool, n)
			for _, i := range split.TestIndices {
				testMask[i] = true
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, kernel := range []string{svm.KernelLinear, svm.KernelRBF, svm.KernelPoly} {
				clf := svm.NewSVC(svm.WithKernel(kernel), svm.WithGamma(gamma))
				if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
					return err
				}
				acc, err := clf.Score(split.XTest, split.YTest)
				if err != nil {
					return err
				}
				grid, err := chart.NewGrid(X, func(pts mat.Matrix) (mat.Matrix, error) {
					return clf.DecisionFunction(pts)
				}, steps)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, kernel+".png")
				if err := chart.DecisionSurface(path, kernel, X, y.RawVector().Data, testMask, grid); err != nil {
					return err
				}
				fmt.Fprintf(out, "%-7s test accuracy %.2f  support vectors %d  -> %s\n",
					kernel, acc, len(clf.Support()), path)
			}
			return nil
		},
	}
	data.register(cmd, 2)
	flags := cmd.Flags()
	flags.StringVar(&outDir, "out-dir", ".", "Directory for the <kernel>.png files")
	flags.Float64Var(&gamma, "gamma", 10, "Kernel coefficient for rbf and poly")
	flags.IntVar(&steps, "grid", 200, "Grid resolution per axis")
	return cmd
}

func newValidationCurveCmd() *cobra.Command {
	var (
		plotPath    string
		nJobs       int
		folds       int
		standardize bool
	)
	cmd := &cobra.Command{
		Use:   "validation-curve",
		Args:  cobra.NoArgs,
		Short: "Training and cross-validation accuracy of an rbf SVM over gamma",
		RunE: func(cmd *cobra.Command, _ []string) error {
			X, y, err := datasets.MakeClassification(
				datasets.WithNSamples(1000),
				datasets.WithNFeatures(10),
				datasets.WithNClasses(2),
				datasets.WithRandomState(0),
			)
			if err != nil {
				return err
			}
			paramRange := logspace(-6, -1, 5)
			factory := func(g float64) model.Classifier {
				if standardize {
					return pipeline.MakePipeline(preprocessing.NewStandardScaler(), svm.NewSVC(svm.WithGamma(g)))
				}
				return svm.NewSVC(svm.WithGamma(g))
			}
			res, err := model_selection.ValidationCurve(factory, X, y, paramRange,
				model_selection.NewStratifiedKFold(folds, false, nil), nJobs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			trainMean, trainStd := res.TrainMeanStd()
			testMean, testStd := res.TestMeanStd()
			fmt.Fprintf(out, "%-10s %18s %18s\n", "gamma", "train", "cross-validation")
			for i, g := range paramRange {
				fmt.Fprintf(out, "%-10.2e %8.4f ± %-7.4f %8.4f ± %-7.4f\n",
					g, trainMean[i], trainStd[i], testMean[i], testStd[i])
			}

			if plotPath == "" {
				return nil
			}
			if err := chart.ValidationCurve(plotPath, paramRange, res.TrainScores, res.TestScores); err != nil {
				return err
			}
			log.GetLogger().Info("Plot written", "path", plotPath)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&plotPath, "plot", "validation_curve.png", "Output image; empty disables plotting")
	flags.IntVar(&nJobs, "n-jobs", 1, "Number of (gamma, fold) fits run concurrently")
	flags.IntVar(&folds, "cv", 10, "Number of stratified folds")
	flags.BoolVar(&standardize, "standardize", false, "Standardize features inside each fold before the SVM")
	return cmd
}

// logspace returns n points spaced evenly on a log10 scale.
func logspace(start, stop float64, n int) []float64 {
	exps := floats.Span(make([]float64, n), start, stop)
	for i, e := range exps {
		exps[i] = math.Pow(10, e)
	}
	return exps
}
