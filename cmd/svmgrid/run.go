package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/svmgrid/cache"
	"github.com/YuminosukeSato/svmgrid/config"
	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pipeline"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
	"github.com/YuminosukeSato/svmgrid/search"
	"github.com/YuminosukeSato/svmgrid/svm"
	"github.com/YuminosukeSato/svmgrid/svm/kernel"
	"github.com/YuminosukeSato/svmgrid/svm/libsvm"
)

// workspace bundles the objects built for one dataset.
type workspace struct {
	ds     *dataset.Dataset
	params svm.Config
	store  cache.Store
	close  func() error
}

func openWorkspace(c *config.Config, index int, useCache bool) (*workspace, error) {
	logger := log.GetLoggerWithName("dataset")
	w := &workspace{close: func() error { return nil }}

	var opts []dataset.Option
	opts = append(opts, dataset.WithLogger(logger))
	if useCache {
		switch c.Cache.Backend {
		case "badger":
			db, err := cache.OpenBadger(cache.BadgerConfig{
				Path:       c.Cache.BadgerPath,
				SyncWrites: true,
				Logger:     log.GetLoggerWithName("cache"),
			})
			if err != nil {
				return nil, err
			}
			w.store = cache.WithPrefix(db, strconv.Itoa(index)+"/")
			w.close = db.Close
		default:
			w.store = &cache.FileStore{Root: c.Datasets[index].Path, Suffix: c.Cache.Suffix}
		}
		opts = append(opts, dataset.WithCache(w.store))
	}

	ds, params, err := c.Dataset(index, opts...)
	if err != nil {
		_ = w.close()
		return nil, err
	}
	w.ds, w.params = ds, params
	return w, nil
}

func newEngine(name string) svm.Engine {
	if name == "kernel" {
		return kernel.New()
	}
	return libsvm.New()
}

func runTrain(cmd *cobra.Command, _ []string) (err error) {
	useCache := cfg.CacheEnabled() && !noCache
	w, err := openWorkspace(cfg, datasetIndex, useCache)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	opts := pipeline.Options{
		Params:       w.params,
		TotalClasses: cfg.Run.TotalClasses,
		NFold:        cfg.Run.NFold,
		UseCache:     useCache,
		Scale:        cfg.Run.Scale,
	}
	if totalClasses > 0 {
		opts.TotalClasses = totalClasses
	}
	if nFold >= 0 {
		opts.NFold = nFold
	}

	adapter := svm.NewAdapter(newEngine(cfg.Run.Engine), log.GetLoggerWithName("svm"))
	orch := pipeline.New(adapter, w.store, nil, log.GetLoggerWithName("pipeline"))
	report, err := orch.Run(cmd.Context(), w.ds, opts)
	if err != nil {
		return err
	}
	if err := report.Write(cmd.OutOrStdout()); err != nil {
		return err
	}

	if orch.State() != pipeline.StateEvaluated {
		return nil
	}
	if report.Total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No test records, predictions not written")
		return nil
	}
	out := outputPath
	if out == "" {
		out = cfg.Run.Output
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(w.ds.Path, out)
	}
	if err := orch.WritePredictions(out, w.ds); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Predictions written to %s\n", out)
	return nil
}

func runSearch(cmd *cobra.Command, _ []string) (err error) {
	useCache := cfg.CacheEnabled() && !noCache
	w, err := openWorkspace(cfg, datasetIndex, useCache)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if gridName != "" {
		cfg.Run.Grid = gridName
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	workers := cfg.Run.Workers
	if numWorkers > 0 {
		workers = numWorkers
	}

	adapter := svm.NewAdapter(newEngine(cfg.Run.Engine), log.GetLoggerWithName("svm"))
	scheduler := search.NewScheduler(adapter, log.GetLoggerWithName("search"),
		search.WithWorkers(workers),
		search.WithFolds(cfg.Run.SearchFolds),
	)
	defer scheduler.Close()

	orch := pipeline.New(adapter, w.store, scheduler, log.GetLoggerWithName("pipeline"))
	report, runErr := orch.Run(cmd.Context(), w.ds, pipeline.Options{
		Params:          w.params,
		ParameterSearch: true,
		Grid:            cfg.Grid(),
		Scale:           cfg.Run.Scale,
	})
	if report == nil {
		return runErr
	}
	if err := report.Write(cmd.OutOrStdout()); err != nil {
		return err
	}
	if plotPath != "" && len(report.Search) > 0 {
		if err := search.PlotHeatMap(report.Search, plotPath); err != nil {
			return err
		}
	}
	return runErr
}

func runStats(cmd *cobra.Command, _ []string) error {
	logger := log.GetLoggerWithName("stats")
	out := cmd.OutOrStdout()
	for i := range cfg.Datasets {
		w, err := openWorkspace(cfg, i, cfg.CacheEnabled())
		if err != nil {
			return err
		}
		err = printStats(out, logger, w)
		if cerr := w.close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "dataset %d", i)
		}
	}
	return nil
}

func printStats(out io.Writer, logger log.Logger, w *workspace) error {
	train, err := w.ds.TrainItems()
	if err != nil {
		return err
	}
	test, err := w.ds.TestItems()
	if err != nil {
		return err
	}
	dataset.LogStats(logger.With(log.PathKey, w.ds.TrainFilePath()), train)

	fmt.Fprintf(out, "Dataset: %s\n", w.ds.Path)
	fmt.Fprintf(out, "Train items: %s (%d)\n", w.ds.TrainFile, len(train))
	fmt.Fprintln(out, "Class\tCount\tOptimal weight")
	for _, c := range dataset.ClassCounts(train) {
		fmt.Fprintf(out, "%d\t%d\t%g\n", c.Label, c.Count, c.Weight)
	}
	if w.ds.TestFile != "" {
		fmt.Fprintf(out, "Test items: %s (%d)\n", w.ds.TestFile, len(test))
	}
	return nil
}
