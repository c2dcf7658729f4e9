package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/dicescript/pool"
)

// State is the mutable context of one program execution. Its pool and
// argument stack belong to it alone; nested blocks get their own State.
type State struct {
	Pool  *pool.Pool
	Stack []int
	Nest  int

	source string // top-level script text, for error locations
	trace  *tracer
}

func (s *State) push(v int) {
	s.Stack = append(s.Stack, v)
}

func (s *State) pop() (int, error) {
	if len(s.Stack) == 0 {
		return 0, ErrStackUnderflow
	}
	v := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return v, nil
}

// tracing reports whether this state's trace lines are visible.
func (s *State) tracing() bool {
	return s.trace.verbosity > s.Nest
}

// tracef writes one trace line, indented by nest level. Callers check
// tracing first.
func (s *State) tracef(format string, args ...any) {
	s.trace.printf(s.Nest, format, args...)
}

// tracer holds the verbosity of a single run. It is created by Run and
// shared by every nested State of that run, so a V instruction inside a
// block stays in effect after the block returns.
type tracer struct {
	w         io.Writer
	verbosity int
}

func (t *tracer) printf(nest int, format string, args ...any) {
	if t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "%s%s\n", strings.Repeat("    ", nest), fmt.Sprintf(format, args...))
}
