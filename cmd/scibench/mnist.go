package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scibench/bench"
	"github.com/YuminosukeSato/scibench/datasets"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"github.com/YuminosukeSato/scibench/pkg/log"
)

const mnistBanner = `=======================
MNIST dataset benchmark
=======================

Benchmark on the MNIST dataset. The dataset comprises 70,000 samples
and 784 features. Here, we consider the task of predicting
10 classes -  digits from 0 to 9 from their raw images. By contrast to the
covertype dataset, the feature space is homogeneous.`

func newMNISTCmd(a *app) *cobra.Command {
	var (
		classifiers []string
		nJobs       int
		order       string
		dtype       string
		seed        int64
		outputJSON  bool
		dataHome    string
		mnistURL    string
		mnistDir    string
	)

	cmd := &cobra.Command{
		Use:   "mnist",
		Short: "Benchmark classifiers on MNIST",
		Long: `Train each selected classifier on the first 60000 MNIST rows, predict
the remaining 10000 and print a table sorted by ascending error rate.`,
		// --classifiers takes space separated names as well as a
		// comma separated list, so trailing words belong to it.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !cmd.Flags().Changed("classifiers") {
				return errors.NewValidationError("classifiers", "positional names must follow --classifiers", args)
			}
			classifiers = append(classifiers, args...)
			return a.registry.Validate(classifiers)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := datasets.ParseOrder(order)
			if err != nil {
				return err
			}
			d, err := datasets.ParseDType(dtype)
			if err != nil {
				return err
			}
			cfg := bench.Config{Seed: seed, Workers: nJobs, Order: o, DType: d}
			return runMNIST(cmd, a, classifiers, cfg, outputJSON, loadOptions{
				dataHome: dataHome,
				url:      mnistURL,
				dir:      mnistDir,
				cfg:      datasets.LoadConfig{Order: o, DType: d},
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&classifiers, "classifiers", bench.DefaultClassifiers,
		"Classifiers to benchmark: "+strings.Join(a.registry.Names(), ", "))
	flags.IntVar(&nJobs, "n-jobs", 1,
		"Number of concurrently running workers for models that support parallelism")
	flags.StringVar(&order, "order", "C",
		"Memory layout of the feature matrices: F or C")
	flags.StringVar(&dtype, "dtype", "float32",
		"Element width of the features: float32 or float64")
	flags.Int64Var(&seed, "random-seed", 0,
		"Common seed used by random number generators")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of a table")
	flags.StringVar(&dataHome, "data-home", datasets.DataHome(),
		"Directory of the dataset cache (env "+datasets.DataHomeEnv+")")
	flags.StringVar(&mnistURL, "mnist-url", envOr(mnistURLEnv, datasets.DefaultMNISTURL),
		"Base URL of the MNIST IDX files (env "+mnistURLEnv+")")
	flags.StringVar(&mnistDir, "mnist-dir", "",
		"Read the IDX files from this directory instead of downloading them")

	return cmd
}

func runMNIST(cmd *cobra.Command, a *app, classifiers []string, cfg bench.Config, outputJSON bool, opts loadOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := log.GetLogger()

	fmt.Fprintln(out, mnistBanner)
	fmt.Fprintln(out, "loading dataset...")
	ds, err := a.load(ctx, opts)
	if err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		return err
	}

	section(out, "dataset statistics:")
	if err := bench.WriteDatasetStats(out, ds.Stats()); err != nil {
		return err
	}

	section(out, "training classifiers")
	runner := &bench.Runner{Registry: a.registry, Dataset: ds, Out: out, Logger: logger}
	results, err := runner.Run(ctx, classifiers, cfg)
	if err != nil {
		return err
	}

	rows := bench.Report(results)
	if outputJSON {
		fmt.Fprintln(out)
		return bench.WriteJSON(out, rows)
	}
	section(out, "classification performance:")
	return bench.WriteTable(out, rows)
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}
