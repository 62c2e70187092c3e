package errors

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Train",
			kind:    "engine failure",
			err:     fmt.Errorf("solver diverged"),
			wantMsg: "svmgrid: Train: engine failure: solver diverged",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not trained",
			wantMsg: "svmgrid: Predict: not trained",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
			if tt.err != nil && !Is(err, tt.err) {
				t.Error("ModelError should unwrap to the engine error")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("ConfusionMatrix", 4, 3)

	want := "svmgrid: ConfusionMatrix: length mismatch. Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 4 || dimErr.Got != 3 {
		t.Errorf("unexpected fields %+v", dimErr)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("cost", "must be positive", -1.0)
	if !strings.Contains(err.Error(), "'cost'") || !strings.Contains(err.Error(), "-1") {
		t.Errorf("unexpected message %q", err.Error())
	}
	var vErr *ValidationError
	if !As(err, &vErr) {
		t.Error("Error should be castable to *ValidationError")
	}
}

func TestWarnRouting(t *testing.T) {
	var mu sync.Mutex
	var got []error

	SetZerologWarnFunc(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewParameterWarning("Train", "C <= 0", 0, 0.5))
	Warn(NewUndefinedMetricWarning("precision", 2, "no predicted samples", math.NaN()))

	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "C <= 0") {
		t.Errorf("unexpected warning %q", got[0].Error())
	}
	if !strings.Contains(got[1].Error(), "class 2") {
		t.Errorf("unexpected warning %q", got[1].Error())
	}
}

func TestWarnFallbackHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	w := NewParameterWarning("CrossValidate", "gamma < 0", 1, -1)
	Warn(w)
	if got != w {
		t.Errorf("fallback handler did not receive warning, got %v", got)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "building problem")
	if !Is(wrapped, ErrEmptyData) {
		t.Error("Wrapped error should match ErrEmptyData")
	}
	if !strings.Contains(wrapped.Error(), "building problem") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}

	wrappedf := Wrapf(ErrPoolClosed, "submit cell (%d,%d)", 1, 2)
	if !Is(wrappedf, ErrPoolClosed) {
		t.Error("Wrapf error should match ErrPoolClosed")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("probabilities", []float64{0.2, 0.8}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	err := CheckNumericalStability("probabilities", []float64{0.2, math.NaN()})
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
}

func TestLogSumExp(t *testing.T) {
	got := LogSumExp([]float64{-1000, -1000})
	want := -1000 + math.Log(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogSumExp = %v, want %v", got, want)
	}
	if !math.IsInf(LogSumExp(nil), -1) {
		t.Error("LogSumExp(nil) should be -Inf")
	}
	if !math.IsInf(LogSumExp([]float64{math.Inf(-1)}), -1) {
		t.Error("LogSumExp(-Inf) should be -Inf")
	}
}
