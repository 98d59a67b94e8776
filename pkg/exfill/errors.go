package exfill

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input file is not a valid xlsx format.
var ErrInvalidFormat = errors.New("invalid xlsx format")

// ErrNoSheet indicates the requested worksheet does not exist.
var ErrNoSheet = errors.New("sheet not found")

// ErrNoUnits indicates the sheet holds no content to answer.
var ErrNoUnits = errors.New("nothing to answer")

// Unit stages reported by UnitError.
const (
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// UnitError represents a failure of one batch or question.
type UnitError struct {
	Unit  string
	Stage string
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s failed (%s): %v", e.Unit, e.Stage, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// NewUnitError creates a new UnitError.
func NewUnitError(unit, stage string, err error) *UnitError {
	return &UnitError{
		Unit:  unit,
		Stage: stage,
		Err:   err,
	}
}
