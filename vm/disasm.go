package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/dicescript/source"
)

// Disassemble returns a human-readable listing of the program, with nested
// blocks indented under the instruction that owns them.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "; === %s ===\n", name)
	}
	fmt.Fprintf(&sb, "; %d instructions\n", p.Len())
	p.disassemble(&sb, p.Source, 0)
	return sb.String()
}

func (p *Program) disassemble(sb *strings.Builder, src string, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, in := range p.Code {
		line := in.Op.String()
		switch in.Op {
		case OpPushInt:
			line = fmt.Sprintf("%-10s %d", line, in.Arg)
		case OpFilter:
			if in.PerDie {
				line += " per-die"
			}
		}

		if src != "" {
			loc := source.Locate(src, in.Offset)
			fmt.Fprintf(sb, "%s%04d  %-24s ; line %d:%d\n", indent, i, line, loc.Line, loc.Column)
		} else {
			fmt.Fprintf(sb, "%s%04d  %-24s ; @%d\n", indent, i, line, in.Offset)
		}

		if in.Filter != nil {
			fmt.Fprintf(sb, "%s  ; filter:\n", indent)
			in.Filter.disassemble(sb, src, depth+1)
		}
		if in.Body != nil {
			fmt.Fprintf(sb, "%s  ; body:\n", indent)
			in.Body.disassemble(sb, src, depth+1)
		}
	}
}
