package dataset

import (
	"sort"

	"github.com/YuminosukeSato/svmgrid/pkg/log"
)

// ClassCount is the number of labeled records of one class.
type ClassCount struct {
	Label int
	Count int
	// Weight is max(count)/count, the class weight that balances the
	// training set.
	Weight float64
}

// ClassCounts counts labeled records per class, ascending by label.
// Unlabeled records are ignored.
func ClassCounts(records []*Record) []ClassCount {
	counts := make(map[int]int)
	for _, r := range records {
		if r.ActualLabel != nil {
			counts[*r.ActualLabel]++
		}
	}

	largest := 0
	for _, c := range counts {
		if c > largest {
			largest = c
		}
	}
	out := make([]ClassCount, 0, len(counts))
	for label, c := range counts {
		out = append(out, ClassCount{Label: label, Count: c, Weight: float64(largest) / float64(c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// OptimalClassWeights returns the balancing weights of ClassCounts keyed by
// label, ready for svm.Config.ClassWeights.
func OptimalClassWeights(records []*Record) map[int]float64 {
	weights := make(map[int]float64)
	for _, c := range ClassCounts(records) {
		weights[c.Label] = c.Weight
	}
	return weights
}

// LogStats logs the class distribution and balancing weights of records.
func LogStats(logger log.Logger, records []*Record) {
	counts := ClassCounts(records)
	total := 0
	for _, c := range counts {
		total += c.Count
		logger.Info("Class distribution",
			log.ClassKey, c.Label,
			"count", c.Count,
			"optimal_weight", c.Weight,
		)
	}
	logger.Info("Labeled records", log.SamplesKey, total, log.ClassesKey, len(counts))
}
