// Package search runs a parallel grid search over the cost and gamma
// hyperparameters, scoring every cell by k-fold cross validation.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YuminosukeSato/svmgrid/core/parallel"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
	"github.com/YuminosukeSato/svmgrid/svm"
)

// DefaultFolds is the number of cross-validation folds per cell.
const DefaultFolds = 10

// Result is the score of one grid cell.
type Result struct {
	I        int
	J        int
	Cost     float64
	Gamma    float64
	Accuracy float64
	Elapsed  time.Duration
}

// Scheduler evaluates grids on a fixed worker pool. It is safe to call
// Run repeatedly until Close; concurrent calls run one after another.
type Scheduler struct {
	// runMu holds one grid on the pool at a time, since Pool.Wait joins
	// every task submitted since the previous Wait.
	runMu   sync.Mutex
	adapter *svm.Adapter
	pool    *parallel.Pool
	logger  log.Logger
	folds   int
	workers int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the pool size. Non-positive means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = n }
}

// WithFolds sets the number of cross-validation folds per cell.
func WithFolds(n int) Option {
	return func(s *Scheduler) { s.folds = n }
}

// NewScheduler creates a Scheduler and its worker pool.
func NewScheduler(adapter *svm.Adapter, logger log.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{adapter: adapter, folds: DefaultFolds}
	for _, opt := range opts {
		opt(s)
	}
	if logger == nil {
		logger = log.GetLoggerWithName("search")
	}
	s.pool = parallel.NewPool(s.workers)
	s.logger = logger.With(log.ComponentKey, "search", log.WorkersKey, s.pool.Workers())
	return s
}

// Run cross-validates every cell of grid on p, using base for all other
// hyperparameters. Each cell works on its own copy of base.
//
// Run waits for all cells. If any failed, the first failure is returned
// together with the results of the cells that succeeded. Results are
// ordered by (I, J). A cancelled ctx stops cells that have not started.
func (s *Scheduler) Run(ctx context.Context, p *svm.Problem, base svm.Config, grid Grid) ([]Result, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.pool.Closed() {
		return nil, errors.WithStack(errors.ErrPoolClosed)
	}
	s.logger.Info("Starting parameter search",
		log.GridSizeKey, grid.Size(),
		log.FoldsKey, s.folds,
		log.SamplesKey, p.Len(),
	)

	var (
		mu      sync.Mutex
		results = make([]Result, 0, grid.Size())
		start   = time.Now()
	)
	for i, cost := range grid.Costs {
		for j, gamma := range grid.Gammas {
			task := func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				op := fmt.Sprintf("cross validate cell (%d,%d)", i, j)
				return errors.SafeExecute(op, func() error {
					r, err := s.evaluate(p, base, i, j, cost, gamma)
					if err != nil {
						return errors.Wrapf(err, "cell (%d,%d) C=%g gamma=%g", i, j, cost, gamma)
					}
					mu.Lock()
					results = append(results, r)
					mu.Unlock()
					return nil
				})
			}
			if err := s.pool.Submit(task); err != nil {
				_ = s.pool.Wait()
				return nil, err
			}
		}
	}
	err := s.pool.Wait()

	sort.Slice(results, func(a, b int) bool {
		if results[a].I != results[b].I {
			return results[a].I < results[b].I
		}
		return results[a].J < results[b].J
	})
	if err != nil {
		s.logger.Error("Parameter search failed",
			log.ErrAttrKey, err,
			"completed", len(results),
			log.GridSizeKey, grid.Size(),
		)
		return results, errors.Wrap(err, "parameter search")
	}
	if best, ok := Best(results); ok {
		s.logger.Info("Parameter search finished",
			log.DurationMsKey, time.Since(start).Milliseconds(),
			log.CostKey, best.Cost,
			log.GammaKey, best.Gamma,
			log.AccuracyKey, best.Accuracy,
		)
	}
	return results, nil
}

func (s *Scheduler) evaluate(p *svm.Problem, base svm.Config, i, j int, cost, gamma float64) (Result, error) {
	cfg := base.Clone()
	cfg.Cost = cost
	cfg.Gamma = gamma

	start := time.Now()
	predicted, err := s.adapter.CrossValidate(p, cfg, s.folds)
	if err != nil {
		return Result{}, err
	}
	acc, err := svm.CrossValidationAccuracy(p, predicted)
	if err != nil {
		return Result{}, err
	}
	r := Result{I: i, J: j, Cost: cost, Gamma: gamma, Accuracy: acc, Elapsed: time.Since(start)}
	s.logger.Info("Cross validation finished",
		log.GridCellKey, fmt.Sprintf("%d,%d", i, j),
		log.CostKey, cost,
		log.GammaKey, gamma,
		log.AccuracyKey, acc,
		log.DurationMsKey, r.Elapsed.Milliseconds(),
	)
	return r, nil
}

// Close shuts the worker pool down. Later Run calls fail with
// ErrPoolClosed. Close is idempotent.
func (s *Scheduler) Close() {
	s.pool.Shutdown()
}

// Best returns the result with the highest accuracy, the earliest cell on
// ties. ok is false for an empty slice.
func Best(results []Result) (best Result, ok bool) {
	for _, r := range results {
		if !ok || r.Accuracy > best.Accuracy {
			best, ok = r, true
		}
	}
	return best, ok
}
