// Package scibench benchmarks classical machine-learning classifiers on
// MNIST and hosts the estimators the benchmark drives.
//
// The module is organised like scikit-learn:
//
//   - bench: the registry of pre-configured classifiers, the sequential
//     runner that times Fit and Predict, and the results report
//   - datasets: the MNIST loader and on-disk cache, CSV reading and
//     MakeClassification
//   - sklearn/...: dummy, tree, ensemble, kernel_approximation, svm,
//     linear_model, neural_network, pipeline and model_selection
//   - metrics: zero-one loss, accuracy and regression scores
//   - performance: memory-mapped matrices backing the dataset cache
//   - core: estimator interfaces, seeding and the worker pool
//   - pkg/errors, pkg/log: structured errors and zerolog-backed logging
//   - pkg/chart: gonum/plot figures for the demos
//
// # Quick Start
//
// Benchmark the default classifiers from the command line:
//
//	go run ./cmd/scibench mnist --classifiers extraTrees,nystroem-svm --n-jobs 4
//
// Or drive the runner directly:
//
//	loader := datasets.NewMNISTLoader(
//	    datasets.NewHTTPSource(datasets.DefaultMNISTURL),
//	    datasets.NewDirCache(datasets.DataHome()),
//	)
//	ds, err := loader.Load(ctx, datasets.LoadConfig{Order: datasets.OrderC, DType: datasets.Float32})
//	if err != nil {
//	    return err
//	}
//	runner := &bench.Runner{Registry: bench.DefaultRegistry(), Dataset: ds, Out: os.Stdout}
//	results, err := runner.Run(ctx, []string{"cart", "dummy"}, bench.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	return bench.WriteTable(os.Stdout, bench.Report(results))
//
// # Error Handling
//
// Errors carry stack traces via github.com/cockroachdb/errors. A failing or
// panicking estimator aborts the whole run with an EstimatorFailureError:
//
//	var ef *errors.EstimatorFailureError
//	if errors.As(err, &ef) {
//	    fmt.Printf("%s failed during %s\n", ef.Name, ef.Phase)
//	}
//
// Convergence warnings go through errors.Warn and end up in the zerolog
// logger once log.SetupLogger has been called.
package scibench
