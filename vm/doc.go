// Package vm implements the dice-script executor.
//
// This package contains:
//   - the closed Opcode set and the Instruction and Program types
//   - State, the pool and argument stack of one execution
//   - Executor, which runs a Program with one exhaustive dispatch switch
//   - RuntimeError, which carries the failing instruction's source offset
//
// Programs are immutable once compiled. Repeat and filter instructions own
// their nested Programs; the executor runs them in child States one nest
// level deeper, handing each child either a copy of the ambient pool or an
// explicit override pool. Trace verbosity belongs to a single Run.
package vm
