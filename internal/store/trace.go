package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TraceEntry is one line of ssd.jsonl: the SSD of a single source volume
// against the reference.
type TraceEntry struct {
	// Volume is the source volume index (1-based relative to the reference).
	Volume int `json:"volume"`

	SSD int64 `json:"ssd"`

	// Outlier marks volumes flagged by the summary.
	Outlier bool `json:"outlier,omitempty"`
}

func tracePath(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID, "ssd.jsonl")
}

// TraceWriter writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates <baseDir>/runs/<runID>/ssd.jsonl, truncating any
// existing trace.
func NewTraceWriter(baseDir, runID string) (*TraceWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := tracePath(baseDir, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends a trace entry. The entry is buffered until Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// WriteTrace writes the trace of a result, one entry per SSD value.
func WriteTrace(baseDir string, result *Result) (err error) {
	tw, err := NewTraceWriter(baseDir, result.RunID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	flagged := make(map[int]bool, len(result.Summary.Outliers))
	for _, o := range result.Summary.Outliers {
		flagged[o.Volume] = true
	}

	for k, v := range result.SSD {
		entry := TraceEntry{Volume: k + 1, SSD: v, Outlier: flagged[k+1]}
		if err := tw.Write(entry); err != nil {
			return err
		}
	}
	return nil
}

// ReadTrace reads every entry of a run's trace.
func ReadTrace(baseDir, runID string) ([]TraceEntry, error) {
	file, err := os.Open(tracePath(baseDir, runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	var entries []TraceEntry
	dec := json.NewDecoder(bufio.NewReader(file))
	for {
		var entry TraceEntry
		err := dec.Decode(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode trace entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
