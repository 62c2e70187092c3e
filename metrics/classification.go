package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// ClassStats holds the one-vs-rest scores of one class.
type ClassStats struct {
	Precision float64
	Recall    float64
	FScore    float64
}

// Accuracy returns trace/total, NaN for an empty matrix.
func Accuracy(m *ConfusionMatrix) float64 {
	total := m.Total()
	if total == 0 {
		return math.NaN()
	}
	return float64(m.Trace()) / float64(total)
}

// PerClassStats computes precision, recall and F-score per class.
//
// A zero denominator makes the affected score NaN and raises an
// UndefinedMetricWarning. This includes the F-score of a class whose
// precision and recall are both 0.
func PerClassStats(m *ConfusionMatrix) []ClassStats {
	rows := m.RowSums()
	cols := m.ColSums()
	stats := make([]ClassStats, m.n)
	for i := 0; i < m.n; i++ {
		hits := float64(m.At(i, i))
		s := ClassStats{Precision: math.NaN(), Recall: math.NaN(), FScore: math.NaN()}

		if cols[i] > 0 {
			s.Precision = hits / float64(cols[i])
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", i, "no predicted samples", s.Precision))
		}
		if rows[i] > 0 {
			s.Recall = hits / float64(rows[i])
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning("recall", i, "no true samples", s.Recall))
		}

		switch {
		case math.IsNaN(s.Precision) || math.IsNaN(s.Recall):
		case s.Precision+s.Recall == 0:
			errors.Warn(errors.NewUndefinedMetricWarning("f-score", i, "precision and recall are both 0", s.FScore))
		default:
			s.FScore = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		stats[i] = s
	}
	return stats
}

// WeightedFScore averages the per-class F-scores weighted by the number of
// predicted samples of each class. Classes are summed in label order. An
// undefined F-score of any class makes the result NaN, as does an empty
// matrix.
func WeightedFScore(stats []ClassStats, m *ConfusionMatrix) (float64, error) {
	if len(stats) != m.n {
		return 0, errors.NewDimensionError("weighted f-score", m.n, len(stats))
	}
	total := m.Total()
	if total == 0 {
		return math.NaN(), nil
	}
	f := make([]float64, m.n)
	w := make([]float64, m.n)
	for i, c := range m.ColSums() {
		f[i] = stats[i].FScore
		w[i] = float64(c)
	}
	return floats.Dot(f, w) / float64(total), nil
}

// AverageFScorePosNeg returns the mean F-score of classes 0 and 1, the
// usual summary for sentiment-style binary problems. NaN when fewer than
// two classes exist.
func AverageFScorePosNeg(stats []ClassStats) float64 {
	if len(stats) < 2 {
		return math.NaN()
	}
	return (stats[0].FScore + stats[1].FScore) / 2
}
