// Package model provides the core interfaces shared by every estimator.
//
// Seed and worker knobs are explicit capabilities rather than parameter
// names: an estimator with internal randomness implements Seeded, one that
// can parallelize fit or predict implements Parallel. Composite estimators
// (pipelines) forward both calls to their steps.
package model

// Seeded is implemented by estimators with internal randomness.
type Seeded interface {
	// SetRandomState fixes the seed used by the next Fit.
	SetRandomState(seed int64)
}

// Parallel is implemented by estimators that can use several workers.
type Parallel interface {
	// SetNJobs sets the worker count. Values <= 0 mean one worker per CPU.
	SetNJobs(n int)
}

// ParameterGetter is implemented by models that expose their hyperparameters.
// Keys follow scikit-learn naming; composite models use "step__param".
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// Named is implemented by estimators that report a type name for logs
// and for pipeline step names.
type Named interface {
	Name() string
}
