package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/dicescript/source"
)

// Sentinel causes carried by RuntimeError.
var (
	ErrStackUnderflow = errors.New("argument stack underflow")
	ErrInvalidSides   = errors.New("dice must have at least one side")
	ErrNegativeDice   = errors.New("cannot roll a negative number of dice")
	ErrNegativeRepeat = errors.New("repetition count cannot be negative")
)

// RuntimeError reports an instruction that failed during execution. The
// source line is resolved only when the error is rendered.
type RuntimeError struct {
	Offset int    // source offset of the failing instruction
	Op     Opcode // the failing instruction
	Err    error  // cause

	source string
}

func (e *RuntimeError) Error() string {
	if e.source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	loc := e.Location()
	return fmt.Sprintf("line %d: %s: %v", loc.Line, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Location resolves the failing instruction's position in the script.
func (e *RuntimeError) Location() source.Location {
	return source.Locate(e.source, e.Offset)
}
