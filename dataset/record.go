package dataset

import (
	"fmt"
	"sort"
)

// Record is one sparse feature vector with its identity and labels.
//
// Features only ever holds non-zero values. ActualLabel is nil for
// unlabeled test records. PredictedLabel and Probabilities are set by
// SetPrediction once per evaluation pass.
type Record struct {
	ID             *int64
	Features       map[int]float64
	ActualLabel    *int
	PredictedLabel *int
	Probabilities  map[int]float64
}

// NewRecord creates a Record, dropping zero-valued features.
func NewRecord(id *int64, features map[int]float64, actualLabel *int) *Record {
	sparse := make(map[int]float64, len(features))
	for idx, v := range features {
		if v != 0 {
			sparse[idx] = v
		}
	}
	return &Record{
		ID:          id,
		Features:    sparse,
		ActualLabel: actualLabel,
	}
}

// HasLabel reports whether the record carries an actual label.
func (r *Record) HasLabel() bool {
	return r.ActualLabel != nil
}

// Evaluated reports whether SetPrediction has been called.
func (r *Record) Evaluated() bool {
	return r.PredictedLabel != nil
}

// SetPrediction stores the predicted label and per-class probabilities.
func (r *Record) SetPrediction(label int, probabilities map[int]float64) {
	r.PredictedLabel = &label
	r.Probabilities = probabilities
}

// FeatureIndices returns the feature indices in ascending order.
func (r *Record) FeatureIndices() []int {
	idx := make([]int, 0, len(r.Features))
	for i := range r.Features {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// SortedLabels returns the class labels of Probabilities in ascending order.
// This is the column order of the prediction output.
func (r *Record) SortedLabels() []int {
	labels := make([]int, 0, len(r.Probabilities))
	for l := range r.Probabilities {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

func (r *Record) String() string {
	id := "<nil>"
	if r.ID != nil {
		id = fmt.Sprint(*r.ID)
	}
	actual, predicted := "<nil>", "<nil>"
	if r.ActualLabel != nil {
		actual = fmt.Sprint(*r.ActualLabel)
	}
	if r.PredictedLabel != nil {
		predicted = fmt.Sprint(*r.PredictedLabel)
	}
	return fmt.Sprintf("Record[id=%s, actual=%s, predicted=%s, features=%d]", id, actual, predicted, len(r.Features))
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
