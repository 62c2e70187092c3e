package search

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
	"github.com/YuminosukeSato/svmgrid/pkg/log"
	"github.com/YuminosukeSato/svmgrid/svm"
)

type stubModel struct{}

func (stubModel) Labels() []int { return []int{0, 1} }

// scoreEngine predicts correctly for the first k samples, where k grows
// with cost*gamma, so accuracies are deterministic per cell.
type scoreEngine struct {
	calls   atomic.Int32
	panicAt float64
	failAt  float64
}

func (e *scoreEngine) Train(*svm.Problem, svm.Config) (svm.Model, error) { return stubModel{}, nil }

func (e *scoreEngine) CrossValidate(p *svm.Problem, cfg svm.Config, folds int) ([]float64, error) {
	e.calls.Add(1)
	if cfg.Cost == e.panicAt {
		panic("engine exploded")
	}
	if cfg.Cost == e.failAt {
		return nil, errors.New("engine failed")
	}
	k := int(math.Min(float64(p.Len()), cfg.Cost*cfg.Gamma*10))
	out := make([]float64, p.Len())
	for i, y := range p.Y {
		if i < k {
			out[i] = y
		} else {
			out[i] = 1 - y
		}
	}
	return out, nil
}

func (e *scoreEngine) PredictProbability(svm.Model, []svm.Node) (float64, []float64, error) {
	return 0, []float64{1, 0}, nil
}

func (e *scoreEngine) CheckParameter(*svm.Problem, svm.Config) string { return "" }

func problem() *svm.Problem {
	p := &svm.Problem{}
	for i := 0; i < 10; i++ {
		p.X = append(p.X, []svm.Node{{Index: 1, Value: float64(i)}})
		p.Y = append(p.Y, float64(i%2))
	}
	return p
}

func newScheduler(t *testing.T, e svm.Engine) (*Scheduler, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	s := NewScheduler(svm.NewAdapter(e, logger), logger, WithWorkers(3), WithFolds(2))
	t.Cleanup(s.Close)
	return s, logger
}

func TestGrids(t *testing.T) {
	coarse := CoarseGrid()
	if len(coarse.Costs) != 11 || len(coarse.Gammas) != 10 {
		t.Fatalf("coarse grid = %dx%d", len(coarse.Costs), len(coarse.Gammas))
	}
	if coarse.Costs[0] != math.Pow(2, -5) || coarse.Costs[10] != math.Pow(2, 15) {
		t.Errorf("coarse costs = %v", coarse.Costs)
	}
	if coarse.Gammas[0] != math.Pow(2, -15) || coarse.Gammas[9] != math.Pow(2, 3) {
		t.Errorf("coarse gammas = %v", coarse.Gammas)
	}

	fine := FineGrid()
	if fine.Size() != 49 {
		t.Errorf("fine grid size = %d", fine.Size())
	}
	if fine.Costs[0] != 64 || fine.Costs[6] != 4096 || fine.Gammas[0] != math.Pow(2, -14) || fine.Gammas[6] != math.Pow(2, -8) {
		t.Errorf("fine grid = %+v", fine)
	}

	if err := (Grid{Costs: []float64{1}}).Validate(); err == nil {
		t.Error("grid without gammas should be invalid")
	}
}

func TestRun(t *testing.T) {
	e := &scoreEngine{panicAt: -1, failAt: -1}
	s, logger := newScheduler(t, e)
	base := svm.DefaultConfig()
	base.ClassWeights = map[int]float64{0: 2}

	grid := Grid{Costs: []float64{1, 2}, Gammas: []float64{0.1, 0.2}}
	results, err := s.Run(context.Background(), problem(), base, grid)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	want := []struct {
		i, j int
		acc  float64
	}{
		{0, 0, 0.1}, {0, 1, 0.2}, {1, 0, 0.2}, {1, 1, 0.4},
	}
	for k, w := range want {
		r := results[k]
		if r.I != w.i || r.J != w.j || math.Abs(r.Accuracy-w.acc) > 1e-9 {
			t.Errorf("results[%d] = %+v, want %+v", k, r, w)
		}
	}
	if base.Cost != 1 || base.Gamma != svm.GammaAuto {
		t.Error("base config was modified")
	}

	best, ok := Best(results)
	if !ok || best.I != 1 || best.J != 1 {
		t.Errorf("Best = %+v", best)
	}
	if logger.CountMessage("Cross validation finished") != 4 {
		t.Error("expected one log line per cell")
	}
}

func TestConcurrentRunsKeepTheirOwnResults(t *testing.T) {
	e := &scoreEngine{panicAt: -1, failAt: -1}
	s, _ := newScheduler(t, e)
	grids := []Grid{
		{Costs: []float64{1, 2, 4}, Gammas: []float64{0.1, 0.2}},
		{Costs: []float64{0.5}, Gammas: []float64{0.1, 0.2, 0.4, 0.8}},
	}

	var wg sync.WaitGroup
	results := make([][]Result, len(grids))
	errs := make([]error, len(grids))
	for round := 0; round < 20; round++ {
		for k, g := range grids {
			wg.Add(1)
			go func(k int, g Grid) {
				defer wg.Done()
				results[k], errs[k] = s.Run(context.Background(), problem(), svm.DefaultConfig(), g)
			}(k, g)
		}
		wg.Wait()
		for k, g := range grids {
			if errs[k] != nil {
				t.Fatalf("round %d grid %d: %v", round, k, errs[k])
			}
			if len(results[k]) != g.Size() {
				t.Fatalf("round %d grid %d: %d results, want %d", round, k, len(results[k]), g.Size())
			}
			for _, r := range results[k] {
				if r.I >= len(g.Costs) || r.J >= len(g.Gammas) || r.Cost != g.Costs[r.I] || r.Gamma != g.Gammas[r.J] {
					t.Fatalf("round %d grid %d: result %+v belongs to another grid", round, k, r)
				}
			}
		}
	}
	if got, want := int(e.calls.Load()), 20*(grids[0].Size()+grids[1].Size()); got != want {
		t.Errorf("cross validations = %d, want %d", got, want)
	}
}

func TestRunCollectsPartialResults(t *testing.T) {
	e := &scoreEngine{panicAt: 2, failAt: -1}
	s, _ := newScheduler(t, e)

	grid := Grid{Costs: []float64{1, 2, 3}, Gammas: []float64{0.1}}
	results, err := s.Run(context.Background(), problem(), svm.DefaultConfig(), grid)
	if err == nil {
		t.Fatal("expected the panicking cell to fail the run")
	}
	var pe *errors.PanicError
	if !errors.As(err, &pe) {
		t.Errorf("expected a PanicError in the chain, got %v", err)
	}
	if e.calls.Load() != 3 {
		t.Errorf("a failing cell must not stop its siblings, %d calls", e.calls.Load())
	}
	if len(results) != 2 || results[0].I != 0 || results[1].I != 2 {
		t.Errorf("partial results = %+v", results)
	}
}

func TestRunEngineError(t *testing.T) {
	e := &scoreEngine{panicAt: -1, failAt: 1}
	s, logger := newScheduler(t, e)
	_, err := s.Run(context.Background(), problem(), svm.DefaultConfig(), Grid{Costs: []float64{1}, Gammas: []float64{1}})
	var me *errors.ModelError
	if !errors.As(err, &me) {
		t.Errorf("expected ModelError, got %v", err)
	}
	if !logger.ContainsMessage("Parameter search failed") {
		t.Error("expected failure log")
	}
}

func TestRunCancelled(t *testing.T) {
	e := &scoreEngine{panicAt: -1, failAt: -1}
	s, _ := newScheduler(t, e)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, problem(), svm.DefaultConfig(), Grid{Costs: []float64{1, 2}, Gammas: []float64{1}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if e.calls.Load() != 0 {
		t.Error("cells ran after cancellation")
	}
}

func TestClose(t *testing.T) {
	s, _ := newScheduler(t, &scoreEngine{panicAt: -1, failAt: -1})
	s.Close()
	s.Close()
	_, err := s.Run(context.Background(), problem(), svm.DefaultConfig(), Grid{Costs: []float64{1}, Gammas: []float64{1}})
	if !errors.Is(err, errors.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	results := []Result{{I: 0, J: 1, Cost: 64, Gamma: 0.0625, Accuracy: 0.75}}
	if err := WriteCSV(&buf, results); err != nil {
		t.Fatal(err)
	}
	want := "i;j;C;gamma;accuracy;time_ms\n0;1;64;0.0625;0.75;0\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPlotHeatMap(t *testing.T) {
	results := []Result{
		{I: 0, J: 0, Cost: 1, Gamma: 0.5, Accuracy: 0.5},
		{I: 0, J: 1, Cost: 1, Gamma: 1, Accuracy: 0.6},
		{I: 1, J: 0, Cost: 2, Gamma: 0.5, Accuracy: 0.7},
		{I: 1, J: 1, Cost: 2, Gamma: 1, Accuracy: 0.9},
	}
	path := filepath.Join(t.TempDir(), "search.png")
	if err := PlotHeatMap(results, path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("heat map not written: %v", err)
	}
	if err := PlotHeatMap(nil, path); err == nil {
		t.Error("expected error for no results")
	}

	g := newAccuracyGrid(results[:3])
	if c, r := g.Dims(); c != 2 || r != 2 {
		t.Errorf("Dims = %d,%d", c, r)
	}
	if !math.IsNaN(g.Z(1, 1)) || g.Max() != 0.7 || g.Min() != 0.5 {
		t.Errorf("missing cell handling: z=%v min=%v max=%v", g.Z(1, 1), g.Min(), g.Max())
	}
	if !strings.HasPrefix(filepath.Base(path), "search") {
		t.Fail()
	}
}
