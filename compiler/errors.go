package compiler

import (
	"fmt"

	"github.com/chazu/dicescript/source"
)

// SyntaxError reports a script that could not be compiled. Offset is
// absolute in the top-level script, including for errors inside nested
// blocks.
type SyntaxError struct {
	Offset int
	Msg    string

	source string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Location().Line, e.Msg)
}

// Location resolves the error offset to a line and column of the script.
func (e *SyntaxError) Location() source.Location {
	return source.Locate(e.source, e.Offset)
}
