package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies the kind of an Instruction. The set is closed: the
// executor's dispatch switch handles every value below.
type Opcode uint8

// Argument pushes
const (
	OpPushInt   Opcode = 0x01 // push Instruction.Arg
	OpPushSum   Opcode = 0x02 // push the pool total
	OpPushCount Opcode = 0x03 // push the pool cardinality
)

// Pool replacement and filtering
const (
	OpRoll     Opcode = 0x10 // pop sides, pop count; replace the pool with a fresh roll
	OpKeepGeq  Opcode = 0x11 // pop t; keep dice >= t
	OpKeepLeq  Opcode = 0x12 // pop t; keep dice <= t
	OpTop      Opcode = 0x13 // pop k; keep the k highest dice
	OpBottom   Opcode = 0x14 // pop k; keep the k lowest dice
	OpScale    Opcode = 0x15 // pop k; multiply every die value by k
	OpAddDie   Opcode = 0x16 // pop v; add one die showing v
	OpAddNeg   Opcode = 0x17 // pop v; add one die showing -v
)

// Side effects
const (
	OpGraph     Opcode = 0x20 // hand the flattened pool to the grapher
	OpVerbosity Opcode = 0x21 // pop n; set the run's trace verbosity
)

// Blocks
const (
	OpRepeat Opcode = 0x30 // pop reps; run Body reps times over the pool
	OpFilter Opcode = 0x31 // run Filter, remove the match, optionally feed it to Body
)

// OpcodeInfo provides metadata about each opcode for listings.
type OpcodeInfo struct {
	Name string // listing mnemonic
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPushInt:   {"PUSH_INT"},
	OpPushSum:   {"PUSH_SUM"},
	OpPushCount: {"PUSH_COUNT"},

	OpRoll:    {"ROLL"},
	OpKeepGeq: {"KEEP_GEQ"},
	OpKeepLeq: {"KEEP_LEQ"},
	OpTop:     {"TOP"},
	OpBottom:  {"BOTTOM"},
	OpScale:   {"SCALE"},
	OpAddDie:  {"ADD_DIE"},
	OpAddNeg:  {"ADD_NEG"},

	OpGraph:     {"GRAPH"},
	OpVerbosity: {"VERBOSITY"},

	OpRepeat: {"REPEAT"},
	OpFilter: {"FILTER"},
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the listing mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsBlock reports whether instructions with this opcode own nested programs.
func (op Opcode) IsBlock() bool {
	return op == OpRepeat || op == OpFilter
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	return []Opcode{
		OpPushInt, OpPushSum, OpPushCount,
		OpRoll, OpKeepGeq, OpKeepLeq, OpTop, OpBottom, OpScale, OpAddDie, OpAddNeg,
		OpGraph, OpVerbosity,
		OpRepeat, OpFilter,
	}
}

// ---------------------------------------------------------------------------
// Instructions and programs
// ---------------------------------------------------------------------------

// Instruction is one compiled operation.
type Instruction struct {
	Op     Opcode   `cbor:"1,keyasint"`
	Arg    int      `cbor:"2,keyasint,omitempty"` // literal for OpPushInt
	Offset int      `cbor:"3,keyasint"`           // absolute source offset
	Body   *Program `cbor:"4,keyasint,omitempty"` // OpRepeat body, or OpFilter's dependent block
	Filter *Program `cbor:"5,keyasint,omitempty"` // OpFilter match program

	// PerDie makes an OpFilter's dependent block run once per matched die
	// instead of popping a repetition count.
	PerDie bool `cbor:"6,keyasint,omitempty"`
}

// Program is an immutable instruction sequence. Source is set on top-level
// programs only and is used to resolve error locations.
type Program struct {
	Code   []Instruction `cbor:"1,keyasint"`
	Source string        `cbor:"2,keyasint,omitempty"`
}

// Len returns the number of top-level instructions.
func (p *Program) Len() int {
	return len(p.Code)
}
