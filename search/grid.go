package search

import (
	"math"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Grid is the Cartesian product of candidate costs and gammas. Cell (i, j)
// pairs Costs[i] with Gammas[j].
type Grid struct {
	Costs  []float64
	Gammas []float64
}

// CoarseGrid spans C = 2^-5, 2^-3, ..., 2^15 and gamma = 2^-15, 2^-13, ..., 2^3.
func CoarseGrid() Grid {
	return Grid{
		Costs:  powersOfTwo(-5, 2, 11),
		Gammas: powersOfTwo(-15, 2, 10),
	}
}

// FineGrid spans C = 2^6 .. 2^12 and gamma = 2^-14 .. 2^-8.
func FineGrid() Grid {
	return Grid{
		Costs:  powersOfTwo(6, 1, 7),
		Gammas: powersOfTwo(-14, 1, 7),
	}
}

func powersOfTwo(start, step, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(2, float64(start+step*i))
	}
	return out
}

// Size returns the number of cells.
func (g Grid) Size() int {
	return len(g.Costs) * len(g.Gammas)
}

// Validate rejects grids without cells.
func (g Grid) Validate() error {
	if len(g.Costs) == 0 {
		return errors.NewValidationError("costs", "grid needs at least one cost", g.Costs)
	}
	if len(g.Gammas) == 0 {
		return errors.NewValidationError("gammas", "grid needs at least one gamma", g.Gammas)
	}
	return nil
}
