// Package pipeline drives one dataset through training, cross validation,
// evaluation and prediction output, or through a hyperparameter search.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/svmgrid/cache"
	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/metrics"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
	"github.com/YuminosukeSato/svmgrid/preprocessing"
	"github.com/YuminosukeSato/svmgrid/search"
	"github.com/YuminosukeSato/svmgrid/svm"
)

// Artifact names inside the dataset directory.
const (
	ModelKey    = "svm_model"
	ProblemFile = "svm_problem.txt"
	SearchFile  = "parameter_search.csv"
)

// Options selects what a Run does.
type Options struct {
	// Params are the hyperparameters for training, or the base config of
	// a search.
	Params svm.Config
	// TotalClasses sizes the evaluation confusion matrix.
	TotalClasses int
	// NFold enables post-training cross validation when greater than 1.
	NFold int
	// ParameterSearch runs Grid instead of training.
	ParameterSearch bool
	Grid            search.Grid
	// UseCache loads and stores the trained model.
	UseCache bool
	// Scale maps every feature into [-1, 1] using the training records
	// before building the problem. Test records are scaled with the same
	// factors.
	Scale bool
}

// Report summarises a Run.
type Report struct {
	RunID       string
	FromCache   bool
	NumSamples  int
	NumFeatures int

	// Evaluation over the test records. Accuracy is Matches/Labeled, so
	// unlabelled test records do not lower it; it is NaN when no test
	// record carries a label.
	Total      int
	Labeled    int
	Matches    int
	Accuracy   float64
	Evaluation *metrics.Summary

	// Post-training cross validation, when NFold > 1.
	CVAccuracy float64
	CV         *metrics.Summary

	// Search results, in search mode.
	Search []search.Result
}

// modelArtifact is the cached form of a trained model.
type modelArtifact struct {
	Model  svm.Model
	Scaler *preprocessing.MaxAbsScaler
}

// Orchestrator runs datasets through the adapter. A single Orchestrator
// serves one Run at a time.
type Orchestrator struct {
	adapter   *svm.Adapter
	store     cache.Store
	scheduler *search.Scheduler
	logger    log.Logger

	states stateManager
	model  svm.Model
	scaler *preprocessing.MaxAbsScaler
}

// New creates an Orchestrator. store may be nil, in which case the
// dataset's own cache is used for the model. scheduler is only needed for
// search runs.
func New(adapter *svm.Adapter, store cache.Store, scheduler *search.Scheduler, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.GetLoggerWithName("pipeline")
	}
	return &Orchestrator{
		adapter:   adapter,
		store:     store,
		scheduler: scheduler,
		logger:    logger.With(log.ComponentKey, "pipeline"),
	}
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	return o.states.get()
}

// Model returns the model of the last run, or nil.
func (o *Orchestrator) Model() svm.Model {
	return o.model
}

func (o *Orchestrator) moveTo(logger log.Logger, to State) error {
	if err := o.states.moveTo(to); err != nil {
		return err
	}
	logger.Debug("State changed", log.StateKey, to.String())
	return nil
}

// Run trains (or loads) a model for ds and evaluates its test records, or
// runs a parameter search when opts.ParameterSearch is set.
func (o *Orchestrator) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Report, error) {
	o.states.reset()
	o.model = nil
	o.scaler = nil

	report := &Report{RunID: uuid.NewString(), Accuracy: math.NaN(), CVAccuracy: math.NaN()}
	logger := o.logger.With(log.RunIDKey, report.RunID, log.PathKey, ds.Path)

	if !opts.ParameterSearch && opts.TotalClasses <= 0 {
		return nil, errors.NewValidationError("total_classes", "must be positive", opts.TotalClasses)
	}

	trainItems, err := ds.TrainItems()
	if err != nil {
		return nil, err
	}

	if opts.Scale {
		scaler := preprocessing.NewMaxAbsScaler()
		if trainItems, err = scaler.FitTransform(trainItems); err != nil {
			return nil, err
		}
		o.scaler = scaler
		logger.Debug("Scaled training records", log.FeaturesKey, len(scaler.MaxAbs))
	}

	if opts.ParameterSearch {
		return o.runSearch(ctx, ds, opts, trainItems, report, logger)
	}

	store := o.store
	if store == nil {
		store = ds.Cache()
	}
	if opts.UseCache && store != nil {
		var artifact modelArtifact
		ok, err := store.Load(ModelKey, &artifact)
		switch {
		case err != nil:
			logger.Warn("Ignoring unreadable cached model", log.ErrAttrKey, err)
		case ok && artifact.Model != nil && opts.Scale != (artifact.Scaler != nil):
			logger.Warn("Ignoring cached model trained with different scaling")
		case ok && artifact.Model != nil:
			o.model = artifact.Model
			o.scaler = artifact.Scaler
			o.states.setDimensions(dimensions(trainItems))
			report.NumFeatures, report.NumSamples = o.states.dimensions()
			report.FromCache = true
			logger.Info("Loaded model from cache")
			if err := o.moveTo(logger, StateLoaded); err != nil {
				return nil, err
			}
		}
	}

	if o.model == nil {
		if err := o.train(ds, opts, trainItems, store, report, logger); err != nil {
			return nil, err
		}
	}

	if err := o.evaluate(ctx, ds, opts, report, logger); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) train(ds *dataset.Dataset, opts Options, items []*dataset.Record, store cache.Store, report *Report, logger log.Logger) error {
	if err := o.moveTo(logger, StateTraining); err != nil {
		return err
	}
	problem, err := o.adapter.BuildProblem(items)
	if err != nil {
		return err
	}
	o.states.setDimensions(problem.NumFeatures(), problem.Len())
	report.NumFeatures, report.NumSamples = o.states.dimensions()

	dump := filepath.Join(ds.Path, ProblemFile)
	if err := svm.SaveProblem(dump, problem); err != nil {
		logger.Error("Writing problem dump failed", log.ErrAttrKey, err)
	}

	start := time.Now()
	model, err := o.adapter.Train(problem, opts.Params)
	if err != nil {
		return err
	}
	o.model = model
	logger.Info("Training finished", log.DurationMsKey, time.Since(start).Milliseconds())

	if opts.UseCache && store != nil {
		if err := store.Store(ModelKey, modelArtifact{Model: model, Scaler: o.scaler}); err != nil {
			logger.Warn("Could not cache model", log.ErrAttrKey, err)
		}
	}
	if err := o.moveTo(logger, StateTrained); err != nil {
		return err
	}

	if opts.NFold > 1 {
		start = time.Now()
		predicted, err := o.adapter.CrossValidate(problem, opts.Params, opts.NFold)
		if err != nil {
			return err
		}
		acc, err := svm.CrossValidationAccuracy(problem, predicted)
		if err != nil {
			return err
		}
		report.CVAccuracy = acc
		report.CV, err = summarize(problem.Y, predicted)
		if err != nil {
			logger.Warn("Cross validation report unavailable", log.ErrAttrKey, err)
		}
		logger.Info("Cross validation finished",
			log.FoldsKey, opts.NFold,
			log.AccuracyKey, acc,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return nil
}

// dimensions returns the largest non-zero feature index and the number of
// records, matching svm.Problem for the same records.
func dimensions(items []*dataset.Record) (nFeatures, nSamples int) {
	for _, r := range items {
		for idx, v := range r.Features {
			if v != 0 && idx > nFeatures {
				nFeatures = idx
			}
		}
	}
	return nFeatures, len(items)
}

func summarize(actual, predicted []float64) (*metrics.Summary, error) {
	a := make([]int, len(actual))
	p := make([]int, len(predicted))
	for i := range actual {
		a[i] = int(actual[i])
	}
	for i := range predicted {
		p[i] = int(predicted[i])
	}
	m, err := metrics.NewConfusionMatrix(a, p)
	if err != nil {
		return nil, err
	}
	return metrics.Summarize(m)
}

func (o *Orchestrator) evaluate(ctx context.Context, ds *dataset.Dataset, opts Options, report *Report, logger log.Logger) error {
	testItems, err := ds.TestItems()
	if err != nil {
		return err
	}
	if err := o.moveTo(logger, StateEvaluating); err != nil {
		return err
	}
	if len(testItems) == 0 {
		logger.Warn("No test records to evaluate")
		return o.moveTo(logger, StateEvaluated)
	}

	matrix, err := metrics.NewEmptyConfusionMatrix(opts.TotalClasses)
	if err != nil {
		return err
	}
	start := time.Now()
	for _, r := range testItems {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "evaluate")
		}
		features := r.Features
		if o.scaler != nil {
			features = o.scaler.TransformFeatures(features)
		}
		label, probs, err := o.adapter.PredictWithProbabilities(o.model, features, opts.TotalClasses)
		if err != nil {
			return errors.Wrapf(err, "evaluate record %v", r)
		}
		r.SetPrediction(label, probs)
		if r.ActualLabel == nil {
			continue
		}
		report.Labeled++
		if label == *r.ActualLabel {
			report.Matches++
		}
		if err := matrix.Add(*r.ActualLabel, label); err != nil {
			return err
		}
	}
	ds.SetTestItems(testItems)
	report.Total = len(testItems)

	logger = logger.With(log.PhaseKey, log.PhaseTesting)
	logger.Info("Evaluation finished",
		log.SamplesKey, report.Total,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	if report.Labeled > 0 {
		report.Accuracy = float64(report.Matches) / float64(report.Labeled)
		report.Evaluation, err = metrics.Summarize(matrix)
		if err != nil {
			return err
		}
		logger.Info("Evaluation scores",
			log.MatchesKey, report.Matches,
			log.AccuracyKey, report.Accuracy,
			log.FScoreKey, report.Evaluation.WeightedF,
		)
	}
	return o.moveTo(logger, StateEvaluated)
}

func (o *Orchestrator) runSearch(ctx context.Context, ds *dataset.Dataset, opts Options, items []*dataset.Record, report *Report, logger log.Logger) (*Report, error) {
	if o.scheduler == nil {
		return nil, errors.NewValidationError("scheduler", "parameter search needs a scheduler", nil)
	}
	problem, err := o.adapter.BuildProblem(items)
	if err != nil {
		return nil, err
	}
	o.states.setDimensions(problem.NumFeatures(), problem.Len())
	report.NumFeatures, report.NumSamples = o.states.dimensions()

	logger = logger.With(log.OperationKey, log.OperationSearch)
	logger.Info("Running parameter search", log.KernelKey, string(opts.Params.Kernel))
	results, runErr := o.scheduler.Run(ctx, problem, opts.Params, opts.Grid)
	report.Search = results

	if len(results) > 0 {
		path := filepath.Join(ds.Path, SearchFile)
		if err := search.WriteCSVFile(path, results); err != nil {
			logger.Error("Writing search results failed", log.ErrAttrKey, err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	if err := o.moveTo(logger, StateSearched); err != nil {
		return report, err
	}
	return report, runErr
}

// WritePredictions writes the evaluated test records of ds to path.
func (o *Orchestrator) WritePredictions(path string, ds *dataset.Dataset) error {
	if o.State() != StateEvaluated {
		return errors.Wrapf(errors.ErrNotTrained, "write predictions in state %s", o.State())
	}
	items, err := ds.TestItems()
	if err != nil {
		return err
	}
	return dataset.WritePredictionsFile(path, items, ds.Layout)
}

// Write prints the report in the layout of metrics.WriteReport.
func (r *Report) Write(w io.Writer) error {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	if r.Search != nil {
		best, ok := search.Best(r.Search)
		if ok {
			fmt.Fprintf(w, "Best: C=%g gamma=%g accuracy=%.4f (cell %d,%d)\n", best.Cost, best.Gamma, best.Accuracy, best.I, best.J)
		}
		return search.WriteCSV(w, r.Search)
	}
	if r.CV != nil {
		fmt.Fprintf(w, "Cross Validation Accuracy: %.4f\n", r.CVAccuracy)
		if err := r.CV.Write(w); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "Total test items: %d\n", r.Total)
	if r.Evaluation != nil {
		fmt.Fprintf(w, "Matches: %d\n", r.Matches)
		fmt.Fprintf(w, "Accuracy: %.4f\n", r.Accuracy)
		return r.Evaluation.Write(w)
	}
	return nil
}
