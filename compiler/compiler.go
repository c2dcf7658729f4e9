// Package compiler turns dice scripts into vm Programs.
//
// The compiler is a single left-to-right pass with one character of
// lookahead. It tracks how many values the generated code will have left on
// the argument stack at each point, and uses that depth to pick between the
// two meanings of '+' and '-', to insert the implicit count of 1 before a
// bare 'D' or '{', and to decide how a filter's dependent block repeats.
// Bracketed blocks are compiled by recursing on the same scanner.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/dicescript/vm"
)

var log = commonlog.GetLogger("dicescript.compiler")

// Compile compiles a whole script. The returned Program keeps src for
// diagnostics and may be executed any number of times.
func Compile(src string) (*vm.Program, error) {
	c := &compiler{sc: &scanner{src: src}}
	prog, err := c.compile(0, 0, 0)
	if err != nil {
		log.Debugf("compile failed: %v", err)
		return nil, err
	}
	prog.Source = src
	log.Debugf("compiled %d top-level instructions", prog.Len())
	return prog, nil
}

type compiler struct {
	sc *scanner
}

// block accumulates the code of one Program and its virtual stack depth.
type block struct {
	code  []vm.Instruction
	depth int
}

func (b *block) emit(op vm.Opcode, offset int) {
	b.code = append(b.code, vm.Instruction{Op: op, Offset: offset})
}

func (b *block) pushInt(v, offset int) {
	b.code = append(b.code, vm.Instruction{Op: vm.OpPushInt, Arg: v, Offset: offset})
	b.depth++
}

// compile consumes input until end is matched, or until end of input when
// end is 0. open is the offset of the bracket that started the block.
func (c *compiler) compile(end byte, open, nest int) (*vm.Program, error) {
	b := &block{}
	for {
		if c.sc.eof() {
			if end != 0 {
				return nil, c.errorf(open, "unterminated block: missing %q", end)
			}
			return &vm.Program{Code: b.code}, nil
		}

		if _, ok := operators[c.sc.peek()]; ok {
			offset := c.sc.pos
			ch := c.sc.peek()
			c.sc.pos++
			if err := c.operator(b, ch, offset, nest); err != nil {
				return nil, err
			}
			continue
		}
		if _, ok := c.sc.accept(whitespace); ok {
			continue
		}
		if _, ok := c.sc.accept(comment); ok {
			continue
		}
		ok, err := c.integer(b)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if end != 0 {
			if _, ok := c.sc.accept(literal(end)); ok {
				return &vm.Program{Code: b.code}, nil
			}
		}
		return nil, c.errorf(c.sc.pos, "no valid token at %q", c.sc.rest())
	}
}

// operator compiles the operator ch found at offset.
func (c *compiler) operator(b *block, ch byte, offset, nest int) error {
	switch ch {
	case 'S':
		b.emit(vm.OpPushSum, offset)
		b.depth++

	case 'C':
		b.emit(vm.OpPushCount, offset)
		b.depth++

	case 'D':
		if b.depth == 0 {
			b.pushInt(1, offset)
		}
		if err := c.postfix(b, ch); err != nil {
			return err
		}
		b.emit(vm.OpRoll, offset)
		b.depth -= 2

	case '+', '-':
		op := vm.OpKeepGeq
		if ch == '-' {
			op = vm.OpKeepLeq
		}
		if b.depth == 0 {
			if err := c.postfix(b, ch); err != nil {
				return err
			}
			op = vm.OpAddDie
			if ch == '-' {
				op = vm.OpAddNeg
			}
		}
		b.emit(op, offset)
		b.depth--

	case '*', 'H', 'L', 'V':
		if err := c.postfix(b, ch); err != nil {
			return err
		}
		b.emit(postfixOps[ch], offset)
		b.depth--

	case 'G':
		b.emit(vm.OpGraph, offset)

	case '{':
		body, err := c.compile('}', offset, nest+1)
		if err != nil {
			return err
		}
		if b.depth == 0 {
			b.pushInt(1, offset)
		}
		b.code = append(b.code, vm.Instruction{Op: vm.OpRepeat, Offset: offset, Body: body})
		b.depth--

	case '[':
		filter, err := c.compile(']', offset, nest+1)
		if err != nil {
			return err
		}
		in := vm.Instruction{Op: vm.OpFilter, Offset: offset, Filter: filter}
		c.sc.accept(whitespace)
		brace := c.sc.pos
		if _, ok := c.sc.accept(literal('{')); ok {
			if in.Body, err = c.compile('}', brace, nest+1); err != nil {
				return err
			}
			if b.depth == 0 {
				in.PerDie = true
			} else {
				b.depth--
			}
		}
		b.code = append(b.code, in)

	default:
		return c.errorf(offset, "unknown operator %q", ch)
	}
	return nil
}

var postfixOps = map[byte]vm.Opcode{
	'*': vm.OpScale,
	'H': vm.OpTop,
	'L': vm.OpBottom,
	'V': vm.OpVerbosity,
}

// postfix compiles the mandatory argument following operator op: an integer
// literal, S or C.
func (c *compiler) postfix(b *block, op byte) error {
	c.sc.accept(whitespace)
	offset := c.sc.pos
	ok, err := c.integer(b)
	if err != nil || ok {
		return err
	}
	if _, ok := c.sc.accept(literal('S')); ok {
		b.emit(vm.OpPushSum, offset)
		b.depth++
		return nil
	}
	if _, ok := c.sc.accept(literal('C')); ok {
		b.emit(vm.OpPushCount, offset)
		b.depth++
		return nil
	}
	return c.errorf(offset, "%q needs an integer, S or C after it, got %q", op, c.sc.rest())
}

// integer compiles an integer literal at the cursor, if there is one.
func (c *compiler) integer(b *block) (bool, error) {
	offset := c.sc.pos
	text, ok := c.sc.accept(digits)
	if !ok {
		return false, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return false, c.errorf(offset, "integer literal %s is out of range", text)
	}
	b.pushInt(v, offset)
	return true, nil
}

func (c *compiler) errorf(offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...), source: c.sc.src}
}
