// Package metrics computes classification quality from predicted and
// actual labels: confusion matrix, per-class precision/recall/F and their
// weighted summary.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// ConfusionMatrix counts predictions per (actual, predicted) class pair.
// Rows are actual classes, columns predicted classes; labels are the
// matrix indices 0..N-1.
type ConfusionMatrix struct {
	n      int
	counts []int
}

// NewEmptyConfusionMatrix returns an all-zero matrix over n classes.
func NewEmptyConfusionMatrix(n int) (*ConfusionMatrix, error) {
	if n <= 0 {
		return nil, errors.NewValueError("confusion matrix", fmt.Sprintf("number of classes must be positive, got %d", n))
	}
	return &ConfusionMatrix{n: n, counts: make([]int, n*n)}, nil
}

// NewConfusionMatrix builds a matrix sized by the largest actual label.
//
// A predicted label outside that range is an error rather than being
// silently dropped or grown into.
func NewConfusionMatrix(actual, predicted []int) (*ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return nil, errors.NewDimensionError("confusion matrix", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "confusion matrix")
	}
	maxLabel := 0
	for _, a := range actual {
		if a < 0 {
			return nil, errors.NewValueError("confusion matrix", fmt.Sprintf("negative actual label %d", a))
		}
		if a > maxLabel {
			maxLabel = a
		}
	}
	m, err := NewEmptyConfusionMatrix(maxLabel + 1)
	if err != nil {
		return nil, err
	}
	for i := range actual {
		if err := m.Add(actual[i], predicted[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add counts one prediction.
func (m *ConfusionMatrix) Add(actual, predicted int) error {
	if actual < 0 || actual >= m.n {
		return errors.NewValueError("confusion matrix", fmt.Sprintf("actual label %d outside [0, %d)", actual, m.n))
	}
	if predicted < 0 || predicted >= m.n {
		return errors.NewValueError("confusion matrix", fmt.Sprintf("predicted label %d outside [0, %d)", predicted, m.n))
	}
	m.counts[actual*m.n+predicted]++
	return nil
}

// Classes returns the number of classes N.
func (m *ConfusionMatrix) Classes() int {
	return m.n
}

// At returns the count of class actual predicted as predicted.
func (m *ConfusionMatrix) At(actual, predicted int) int {
	return m.counts[actual*m.n+predicted]
}

// RowSums returns the number of samples per actual class.
func (m *ConfusionMatrix) RowSums() []int {
	sums := make([]int, m.n)
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			sums[i] += m.At(i, j)
		}
	}
	return sums
}

// ColSums returns the number of samples per predicted class.
func (m *ConfusionMatrix) ColSums() []int {
	sums := make([]int, m.n)
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			sums[j] += m.At(i, j)
		}
	}
	return sums
}

// Total returns the number of counted samples.
func (m *ConfusionMatrix) Total() int {
	t := 0
	for _, c := range m.counts {
		t += c
	}
	return t
}

// Trace returns the number of correct predictions.
func (m *ConfusionMatrix) Trace() int {
	t := 0
	for i := 0; i < m.n; i++ {
		t += m.At(i, i)
	}
	return t
}

// Dense returns the counts as a gonum matrix.
func (m *ConfusionMatrix) Dense() *mat.Dense {
	data := make([]float64, len(m.counts))
	for i, c := range m.counts {
		data[i] = float64(c)
	}
	return mat.NewDense(m.n, m.n, data)
}
