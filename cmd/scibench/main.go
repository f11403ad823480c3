// Package main provides the scibench CLI: the MNIST classifier benchmark
// and the small least-squares, SVM kernel and validation-curve demos.
package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scibench/bench"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/pkg/log"
)

// mnistURLEnv overrides the default MNIST mirror.
const mnistURLEnv = "SCIBENCH_MNIST_URL"

// app holds the process-level dependencies; tests replace them.
type app struct {
	out      io.Writer
	errOut   io.Writer
	registry *bench.Registry
	load     func(ctx context.Context, opts loadOptions) (*datasets.Dataset, error)
}

type loadOptions struct {
	dataHome string
	url      string
	dir      string
	cfg      datasets.LoadConfig
}

func main() {
	a := &app{
		out:      os.Stdout,
		errOut:   os.Stderr,
		registry: bench.DefaultRegistry(),
		load:     loadMNIST,
	}
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.GetLogger().Error("scibench failed", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "scibench",
		Short: "Classical machine-learning benchmarks and demos",
		Long: `scibench trains a fixed set of pre-configured classifiers on MNIST and
reports their training time, prediction time and error rate. It also
ships the least-squares, SVM kernel and validation-curve demos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := log.ToLogLevel(logLevel)
			if err != nil {
				return err
			}
			format, err := log.ToFormat(logFormat)
			if err != nil {
				return err
			}
			log.SetupLoggerTo(a.errOut, level, format)
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "console",
		"Log format: console or json")

	root.AddCommand(
		newMNISTCmd(a),
		newOLSCmd(),
		newSVMKernelsCmd(),
		newValidationCurveCmd(),
	)
	return root
}

func loadMNIST(ctx context.Context, opts loadOptions) (*datasets.Dataset, error) {
	return datasets.NewMNISTLoader(
		mnistSource(opts),
		datasets.NewDirCache(opts.dataHome),
	).Load(ctx, opts.cfg)
}

// mnistSource prefers a local copy of the IDX files over the mirror.
func mnistSource(opts loadOptions) datasets.Source {
	if opts.dir != "" {
		return datasets.DirSource{Dir: opts.dir}
	}
	return datasets.NewHTTPSource(opts.url)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
