package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/voxelssd/internal/stats"
)

func TestResult_Validate(t *testing.T) {
	if err := createTestResult().Validate(); err != nil {
		t.Fatalf("Valid result failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *Result)
		field  string
	}{
		{"EmptyRunID", func(r *Result) { r.RunID = "" }, "RunID"},
		{"BadRunID", func(r *Result) { r.RunID = "run-1" }, "RunID"},
		{"EmptySource", func(r *Result) { r.Source = "" }, "Source"},
		{"BadShape", func(r *Result) { r.Shape.SampleWidth = 8 }, "Shape"},
		{"ShortSSD", func(r *Result) { r.SSD = []int64{1} }, "SSD"},
		{"NegativeSSD", func(r *Result) { r.SSD = []int64{1, -1} }, "SSD"},
		{"ZeroTime", func(r *Result) { r.CreatedAt = time.Time{} }, "CreatedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createTestResult()
			tt.mutate(r)

			var verr *ValidationError
			if err := r.Validate(); !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			if !strings.HasPrefix(verr.Error(), "validation error: "+tt.field) {
				t.Errorf("Unexpected message: %s", verr.Error())
			}
		})
	}
}

func TestResult_ToInfo(t *testing.T) {
	ssd := []int64{10, 10, 10, 10, 100}
	r := createTestResult()
	r.Shape.NumImages = 6
	r.SSD = ssd
	r.Summary = stats.Summarize(ssd, 1.5)

	info := r.ToInfo()
	if info.RunID != r.RunID || info.Source != r.Source {
		t.Errorf("Identity mismatch: %+v", info)
	}
	if info.NumImages != 6 || info.ImgSize != 2 {
		t.Errorf("Shape mismatch: %+v", info)
	}
	if info.Outliers != 1 || info.MaxSSD != 100 {
		t.Errorf("Summary mismatch: %+v", info)
	}
}

func TestNewRunID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("Duplicate run ID %s", id)
		}
		seen[id] = true
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{RunID: "abc"}
	if err.Error() != "result not found: abc" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if ErrNotFound.Error() != "result not found" {
		t.Errorf("Unexpected sentinel message: %s", ErrNotFound.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match any NotFoundError")
	}
}
