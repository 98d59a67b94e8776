package structure

import (
	"errors"
	"fmt"
)

// ErrStructureParse indicates the generation service did not return a usable
// structure descriptor.
var ErrStructureParse = errors.New("structure parse failed")

// StructureParseError carries the raw service output that could not be decoded.
type StructureParseError struct {
	Raw string
	Err error
}

func (e *StructureParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrStructureParse, e.Err)
	}
	return ErrStructureParse.Error()
}

func (e *StructureParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrStructureParse.
func (e *StructureParseError) Is(target error) bool {
	return target == ErrStructureParse
}

// NewStructureParseError creates a new StructureParseError.
func NewStructureParseError(raw string, err error) *StructureParseError {
	return &StructureParseError{Raw: raw, Err: err}
}
