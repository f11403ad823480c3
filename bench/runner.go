package bench

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/metrics"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// RunResult holds the measurements of one estimator.
type RunResult struct {
	TrainTime time.Duration
	TestTime  time.Duration
	ErrorRate float64
}

// Runner trains registry entries one after another on a dataset.
type Runner struct {
	Registry *Registry
	Dataset  *datasets.Dataset
	Out      io.Writer        // progress lines; nil discards
	Logger   log.Logger       // nil uses log.GetLogger()
	Clock    func() time.Time // nil uses time.Now
}

// Run trains every selected entry in lexicographic order and returns one
// result per name. The first failure aborts the run and no results are
// returned.
func (r *Runner) Run(ctx context.Context, selected []string, cfg Config) (map[string]RunResult, error) {
	if err := r.Registry.Validate(selected); err != nil {
		return nil, err
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = log.GetLogger()
	}

	names := slices.Clone(selected)
	slices.Sort(names)
	names = slices.Compact(names)

	results := make(map[string]RunResult, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "training %s ... ", name)

		res, err := r.runOne(name, cfg, clock, logger.With(log.EstimatorIDKey, name))
		if err != nil {
			fmt.Fprintln(out, "failed")
			return nil, err
		}
		results[name] = res
		fmt.Fprintln(out, "done")
	}
	return results, nil
}

func (r *Runner) runOne(name string, cfg Config, clock func() time.Time, logger log.Logger) (RunResult, error) {
	entry, _ := r.Registry.Lookup(name)
	est := entry.New()
	ApplyOverrides(est, cfg)

	logger.Debug("Training started",
		log.OperationKey, log.OperationFit,
		log.RandomSeedKey, cfg.Seed,
		log.WorkersKey, cfg.Workers,
	)

	ds := r.Dataset
	start := clock()
	err := errors.SafeExecute(name+".Fit", func() error {
		return est.Fit(ds.TrainX, ds.TrainY)
	})
	trainTime := clock().Sub(start)
	if err != nil {
		logger.Error("Training failed", err, log.PhaseKey, "fit")
		return RunResult{}, errors.NewEstimatorFailureError(name, "fit", err)
	}

	var pred mat.Matrix
	start = clock()
	err = errors.SafeExecute(name+".Predict", func() error {
		var perr error
		pred, perr = est.Predict(ds.TestX)
		return perr
	})
	testTime := clock().Sub(start)
	if err != nil {
		logger.Error("Prediction failed", err, log.PhaseKey, "predict")
		return RunResult{}, errors.NewEstimatorFailureError(name, "predict", err)
	}

	rate, err := metrics.ZeroOneLoss(ds.TestY, pred)
	if err != nil {
		return RunResult{}, errors.NewEstimatorFailureError(name, "predict", err)
	}

	logger.Info("Estimator finished",
		log.DurationSecondsKey, trainTime.Seconds(),
		log.ErrorRateKey, rate,
	)
	return RunResult{TrainTime: trainTime, TestTime: testTime, ErrorRate: rate}, nil
}
