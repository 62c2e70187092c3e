// Package preprocessing scales sparse feature vectors before training.
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// MaxAbsScaler divides every feature by its largest absolute training
// value, mapping it into [-1, 1]. Zero stays zero, so sparse records stay
// sparse. Features never seen during Fit pass through unchanged.
//
// Fields are exported so that a fitted scaler can be cached with the model.
type MaxAbsScaler struct {
	Fitted bool
	// MaxAbs holds the largest |x| per feature index seen during Fit.
	MaxAbs map[int]float64
}

// NewMaxAbsScaler returns an unfitted scaler.
func NewMaxAbsScaler() *MaxAbsScaler {
	return &MaxAbsScaler{}
}

// Fit records the per-feature maximum absolute values of records.
func (s *MaxAbsScaler) Fit(records []*dataset.Record) error {
	if len(records) == 0 {
		return errors.NewModelError("MaxAbsScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	s.MaxAbs = make(map[int]float64)
	for _, r := range records {
		for idx, v := range r.Features {
			if a := math.Abs(v); a > s.MaxAbs[idx] {
				s.MaxAbs[idx] = a
			}
		}
	}
	s.Fitted = true
	return nil
}

// Transform returns scaled copies of records. Ids, labels and predictions
// are shared with the input.
func (s *MaxAbsScaler) Transform(records []*dataset.Record) ([]*dataset.Record, error) {
	if !s.Fitted {
		return nil, errors.WithStack(errors.ErrNotTrained)
	}
	out := make([]*dataset.Record, len(records))
	for i, r := range records {
		scaled := *r
		scaled.Features = s.TransformFeatures(r.Features)
		out[i] = &scaled
	}
	return out, nil
}

// TransformFeatures scales a single sparse vector.
func (s *MaxAbsScaler) TransformFeatures(features map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(features))
	for idx, v := range features {
		if m, ok := s.MaxAbs[idx]; ok && m > 0 {
			v /= m
		}
		out[idx] = v
	}
	return out
}

// FitTransform fits on records and returns their scaled copies.
func (s *MaxAbsScaler) FitTransform(records []*dataset.Record) ([]*dataset.Record, error) {
	if err := s.Fit(records); err != nil {
		return nil, err
	}
	return s.Transform(records)
}

// InverseTransformFeatures undoes TransformFeatures.
func (s *MaxAbsScaler) InverseTransformFeatures(features map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(features))
	for idx, v := range features {
		if m, ok := s.MaxAbs[idx]; ok && m > 0 {
			v *= m
		}
		out[idx] = v
	}
	return out
}

func (s *MaxAbsScaler) String() string {
	if !s.Fitted {
		return "MaxAbsScaler()"
	}
	return fmt.Sprintf("MaxAbsScaler(n_features=%d)", len(s.MaxAbs))
}
