package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValidRecords is matched by every EmptyResultError.
var ErrNoValidRecords = errors.New("no valid records")

// MalformedRowError describes a data row dropped during normalization.
// It is recorded and logged; it never fails a run.
type MalformedRowError struct {
	Row     int
	Reason  string
	Preview []string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s [%s]", e.Row, e.Reason, strings.Join(e.Preview, ", "))
}

// EmptyResultError is returned when normalization produced no MatchRecords.
type EmptyResultError struct {
	Rows    int // data rows scanned
	Markers int // date markers seen
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no valid records in %d rows (%d date markers)", e.Rows, e.Markers)
}

func (e *EmptyResultError) Is(target error) bool {
	return target == ErrNoValidRecords
}

// MissingColumnWarning reports an optional metric skipped because its input
// column is absent from the sheet.
type MissingColumnWarning struct {
	Metric string
	Column string
}

func (w *MissingColumnWarning) Error() string {
	return fmt.Sprintf("%s skipped: column %q not found", w.Metric, w.Column)
}

// SourceLoadError wraps a failure to read or parse a source sheet.
type SourceLoadError struct {
	Path string
	Err  error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }
