package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/svmgrid/dataset"
	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

func TestMaxAbsScaler(t *testing.T) {
	records := []*dataset.Record{
		dataset.NewRecord(dataset.Int64Ptr(1), map[int]float64{1: 4, 2: -10}, dataset.IntPtr(0)),
		dataset.NewRecord(dataset.Int64Ptr(2), map[int]float64{1: -2, 3: 0.5}, dataset.IntPtr(1)),
	}
	s := NewMaxAbsScaler()
	if _, err := s.Transform(records); !errors.Is(err, errors.ErrNotTrained) {
		t.Fatalf("unfitted Transform: got %v", err)
	}

	scaled, err := s.FitTransform(records)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		record, index int
		want          float64
	}{
		{0, 1, 1},
		{0, 2, -1},
		{1, 1, -0.5},
		{1, 3, 1},
	}
	for _, tt := range tests {
		if got := scaled[tt.record].Features[tt.index]; math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("record %d feature %d = %v, want %v", tt.record, tt.index, got, tt.want)
		}
	}
	if _, ok := scaled[0].Features[3]; ok {
		t.Error("scaling must not introduce features")
	}
	if records[0].Features[1] != 4 {
		t.Error("input records were modified")
	}
	if *scaled[1].ActualLabel != 1 {
		t.Error("labels must be preserved")
	}

	unseen := s.TransformFeatures(map[int]float64{9: 3, 1: 8})
	if unseen[9] != 3 || unseen[1] != 2 {
		t.Errorf("TransformFeatures = %v", unseen)
	}
	back := s.InverseTransformFeatures(unseen)
	if back[1] != 8 {
		t.Errorf("InverseTransformFeatures = %v", back)
	}
}

func TestMaxAbsScalerEmpty(t *testing.T) {
	var me *errors.ModelError
	if err := NewMaxAbsScaler().Fit(nil); !errors.As(err, &me) {
		t.Errorf("expected ModelError, got %v", err)
	}
}
