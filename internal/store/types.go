package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/voxelssd/internal/stats"
	"github.com/cwbudde/voxelssd/internal/volume"
)

// Result is the persisted outcome of one SSD analysis run.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string `json:"runId"`

	// Source is the path of the series file that was analyzed.
	Source string `json:"source"`

	// Shape is the layout the file was read with.
	Shape volume.Shape `json:"shape"`

	// SSD holds one entry per non-reference volume; entry k is volume k+1.
	SSD []int64 `json:"ssd"`

	Summary stats.Summary `json:"summary"`

	// Kernel and Workers record how the reduction was executed.
	Kernel  string `json:"kernel"`
	Workers int    `json:"workers"`

	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ResultInfo is result metadata without the SSD vector.
type ResultInfo struct {
	RunID     string    `json:"runId"`
	Source    string    `json:"source"`
	NumImages int       `json:"numImages"`
	ImgSize   int       `json:"imgSize"`
	Outliers  int       `json:"outliers"`
	MaxSSD    int64     `json:"maxSsd"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewResult creates a result with a new run ID and the current time.
func NewResult(source string, shape volume.Shape, ssd []int64, summary stats.Summary) *Result {
	return &Result{
		RunID:     NewRunID(),
		Source:    source,
		Shape:     shape,
		SSD:       ssd,
		Summary:   summary,
		CreatedAt: time.Now(),
	}
}

// ToInfo converts a full Result to ResultInfo (metadata only).
func (r *Result) ToInfo() ResultInfo {
	return ResultInfo{
		RunID:     r.RunID,
		Source:    r.Source,
		NumImages: r.Shape.NumImages,
		ImgSize:   r.Shape.ImgSize,
		Outliers:  len(r.Summary.Outliers),
		MaxSSD:    r.Summary.Max,
		CreatedAt: r.CreatedAt,
	}
}

// Validate checks if the result has valid data.
func (r *Result) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return &ValidationError{Field: "RunID", Reason: "must be a UUID"}
	}
	if r.Source == "" {
		return &ValidationError{Field: "Source", Reason: "cannot be empty"}
	}
	if err := r.Shape.Validate(); err != nil {
		return &ValidationError{Field: "Shape", Reason: err.Error()}
	}
	if len(r.SSD) != r.Shape.NumImages-1 {
		return &ValidationError{
			Field:  "SSD",
			Reason: fmt.Sprintf("length mismatch: expected %d entries for %d images", r.Shape.NumImages-1, r.Shape.NumImages),
		}
	}
	for i, v := range r.SSD {
		if v < 0 {
			return &ValidationError{Field: "SSD", Reason: fmt.Sprintf("entry %d is negative", i)}
		}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a result validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
