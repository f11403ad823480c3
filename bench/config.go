package bench

import (
	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/datasets"
)

// Config is the run-wide configuration.
type Config struct {
	Seed    int64
	Workers int
	Order   datasets.Order
	DType   datasets.DType
}

// DefaultConfig matches the command-line defaults.
func DefaultConfig() Config {
	return Config{Seed: 0, Workers: 1, Order: datasets.OrderC, DType: datasets.Float32}
}

// ApplyOverrides hands the run seed to seed-capable estimators and the
// worker count to parallel ones. Estimators without a knob are untouched.
func ApplyOverrides(est model.Classifier, cfg Config) {
	if s, ok := est.(model.Seeded); ok {
		s.SetRandomState(cfg.Seed)
	}
	if p, ok := est.(model.Parallel); ok {
		p.SetNJobs(cfg.Workers)
	}
}
