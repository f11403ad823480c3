// Package log defines standard attribute keys for machine learning operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log lines from estimators and from the benchmark runner can be
// filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "DecisionTreeClassifier", "Nystroem", "MLPClassifier"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a registry entry, e.g. "nystroem-svm".
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	DataTypeKey = "data.type"

	// DataSizeKey indicates the memory size of the data in bytes.
	DataSizeKey = "data.size_bytes"

	// DataOrderKey records the memory layout of a feature matrix ("C" or "F").
	DataOrderKey = "data.order"

	// CacheKey records the dataset cache fingerprint.
	CacheKey = "data.cache_key"

	BatchSizeKey = "data.batch_size"
)

// Performance Metrics
const (
	DurationMsKey      = "perf.duration_ms"
	DurationSecondsKey = "perf.duration_seconds"

	// ErrorRateKey records the zero-one loss on held-out data.
	ErrorRateKey = "metrics.error_rate"

	AccuracyKey = "metrics.accuracy"
	LossKey     = "metrics.loss"

	IterationKey = "training.iteration"
	EpochKey     = "training.epoch"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkersKey records the worker count handed to parallel estimators.
	WorkersKey = "config.n_jobs"
)

// Error Context
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// Standard attribute value constants for common operations.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationLoad      = "load"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
	PhaseLoading    = "loading"
)
