package compiler

import "sort"

// ---------------------------------------------------------------------------
// Operator table
// ---------------------------------------------------------------------------

// Operator describes one single-character operator of the dice language.
type Operator struct {
	Char    byte
	Name    string
	Postfix bool   // requires an integer, S or C argument
	Doc     string // one-line description, shown by editors on hover
}

// operators is the fixed dispatch table. A character is an operator exactly
// when it has an entry here; closing brackets are block delimiters and are
// matched by the enclosing compile instead.
var operators = map[byte]Operator{
	'S': {Char: 'S', Name: "sum", Doc: "Push the sum of the pool."},
	'C': {Char: 'C', Name: "count", Doc: "Push the number of dice in the pool."},
	'D': {Char: 'D', Name: "roll", Postfix: true,
		Doc: "NDs rolls N dice of s sides, replacing the pool. N defaults to 1."},
	'+': {Char: '+', Name: "plus", Postfix: true,
		Doc: "t+ keeps dice of at least t. With nothing on the stack, +v adds a die of value v."},
	'-': {Char: '-', Name: "minus", Postfix: true,
		Doc: "t- keeps dice of at most t. With nothing on the stack, -v adds a die of value -v."},
	'*': {Char: '*', Name: "scale", Postfix: true, Doc: "*k multiplies every die value by k."},
	'H': {Char: 'H', Name: "high", Postfix: true, Doc: "Hk keeps the k highest dice."},
	'L': {Char: 'L', Name: "low", Postfix: true, Doc: "Lk keeps the k lowest dice."},
	'G': {Char: 'G', Name: "graph", Doc: "Chart the current pool."},
	'V': {Char: 'V', Name: "verbosity", Postfix: true, Doc: "Vn sets trace verbosity to n for the rest of the run."},
	'{': {Char: '{', Name: "repeat",
		Doc: "N{...} runs the block N times on copies of the pool and merges the results. N defaults to 1."},
	'[': {Char: '[', Name: "filter",
		Doc: "[...] removes the dice the block selects. A following {...} runs once per removed die, or N times on all of them when preceded by N."},
}

// LookupOperator returns the table entry for c.
func LookupOperator(c byte) (Operator, bool) {
	op, ok := operators[c]
	return op, ok
}

// Operators returns the operator table ordered by character.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operators))
	for _, op := range operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Char < ops[j].Char })
	return ops
}
