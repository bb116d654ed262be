package dataset

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable matches every DataUnavailableError via errors.Is.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError reports that a source table could not be loaded.
// It is fatal for the run: callers must not build a partial pipeline.
type DataUnavailableError struct {
	Table  Table
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable: load %s from %s: %v", e.Table, e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// Unavailable wraps err as a DataUnavailableError for table.
func Unavailable(table Table, source string, err error) error {
	return &DataUnavailableError{Table: table, Source: source, Err: err}
}
