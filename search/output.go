package search

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// WriteCSV writes one semicolon-separated line per result under the header
// i;j;C;gamma;accuracy;time_ms.
func WriteCSV(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "i;j;C;gamma;accuracy;time_ms")
	for _, r := range results {
		fmt.Fprintf(bw, "%d;%d;%g;%g;%g;%d\n", r.I, r.J, r.Cost, r.Gamma, r.Accuracy, r.Elapsed.Milliseconds())
	}
	return errors.Wrap(bw.Flush(), "write search results")
}

// WriteCSVFile writes the results to path.
func WriteCSVFile(path string, results []Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WriteCSV(f, results)
}

// accuracyGrid exposes results as a plotter.GridXYZ over log2(C) columns
// and log2(gamma) rows. Cells without a result are NaN.
type accuracyGrid struct {
	costs  []float64
	gammas []float64
	z      [][]float64
}

func newAccuracyGrid(results []Result) *accuracyGrid {
	g := &accuracyGrid{}
	maxI, maxJ := -1, -1
	for _, r := range results {
		if r.I > maxI {
			maxI = r.I
		}
		if r.J > maxJ {
			maxJ = r.J
		}
	}
	g.costs = make([]float64, maxI+1)
	g.gammas = make([]float64, maxJ+1)
	g.z = make([][]float64, maxI+1)
	for i := range g.z {
		g.z[i] = make([]float64, maxJ+1)
		for j := range g.z[i] {
			g.z[i][j] = math.NaN()
		}
	}
	for _, r := range results {
		g.costs[r.I] = math.Log2(r.Cost)
		g.gammas[r.J] = math.Log2(r.Gamma)
		g.z[r.I][r.J] = r.Accuracy
	}
	return g
}

func (g *accuracyGrid) Dims() (c, r int)   { return len(g.costs), len(g.gammas) }
func (g *accuracyGrid) Z(c, r int) float64 { return g.z[c][r] }
func (g *accuracyGrid) X(c int) float64    { return g.costs[c] }
func (g *accuracyGrid) Y(r int) float64    { return g.gammas[r] }

// Min and Max skip cells without a result.
func (g *accuracyGrid) Min() float64 { return g.extreme(math.Min, math.Inf(1)) }
func (g *accuracyGrid) Max() float64 { return g.extreme(math.Max, math.Inf(-1)) }

func (g *accuracyGrid) extreme(pick func(a, b float64) float64, start float64) float64 {
	v := start
	for _, row := range g.z {
		for _, z := range row {
			if !math.IsNaN(z) {
				v = pick(v, z)
			}
		}
	}
	return v
}

// PlotHeatMap renders accuracy over log2(C) x log2(gamma) to path. The
// image format follows the file extension (png, svg, pdf, ...).
func PlotHeatMap(results []Result, path string) error {
	if len(results) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "plot heat map")
	}
	grid := newAccuracyGrid(results)

	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1e-9
	}

	p := plot.New()
	p.Title.Text = "Cross-validation accuracy"
	p.X.Label.Text = "log2(C)"
	p.Y.Label.Text = "log2(gamma)"
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save heat map %s", path)
	}
	return nil
}
