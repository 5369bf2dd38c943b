package store

// Store defines the interface for persisting SSD analysis results.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if a result doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves the result of a run, replacing any
	// existing result with the same run ID.
	SaveResult(result *Result) error

	// LoadResult retrieves the result for the given run.
	LoadResult(runID string) (*Result, error)

	// ListResults returns metadata for all stored results, newest first.
	ListResults() ([]ResultInfo, error)

	// DeleteResult removes the result and its trace.
	DeleteResult(runID string) error
}

// ErrNotFound is returned when a requested result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing result.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "result not found: " + e.RunID
	}
	return "result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
