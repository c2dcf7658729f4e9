package vm

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/dicescript/pool"
)

var log = commonlog.GetLogger("dicescript.vm")

// Grapher receives the flattened pool when a program runs a G instruction.
type Grapher interface {
	Graph(values []int) error
}

// Executor runs a compiled Program. Each call to Run starts from an empty
// argument stack and the configured verbosity.
type Executor struct {
	prog      *Program
	rng       *rand.Rand
	grapher   Grapher
	out       io.Writer
	verbosity int
	log       commonlog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRand sets the random source used by rolls. Two executors given
// sources with the same seed produce identical runs.
func WithRand(rng *rand.Rand) Option {
	return func(e *Executor) { e.rng = rng }
}

// WithSeed seeds a fresh random source.
func WithSeed(seed int64) Option {
	return func(e *Executor) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithGrapher sets the chart collaborator for G instructions. Without one,
// G is traced and otherwise ignored.
func WithGrapher(g Grapher) Option {
	return func(e *Executor) { e.grapher = g }
}

// WithTraceOutput sets where trace lines go. Defaults to stdout.
func WithTraceOutput(w io.Writer) Option {
	return func(e *Executor) { e.out = w }
}

// WithVerbosity sets the verbosity each run starts at.
func WithVerbosity(v int) Option {
	return func(e *Executor) { e.verbosity = v }
}

// WithLogger overrides the package logger.
func WithLogger(log commonlog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// NewExecutor creates an executor for prog.
func NewExecutor(prog *Program, opts ...Option) *Executor {
	e := &Executor{
		prog: prog,
		out:  os.Stdout,
		log:  log,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(NewSeed()))
	}
	return e
}

// Run executes the program. The run starts from a copy of override when it
// is non-nil, otherwise from an empty pool. On failure no state is returned.
func (e *Executor) Run(override *pool.Pool) (*State, error) {
	input := pool.New()
	if override != nil {
		input = override.Clone()
	}
	r := &runner{
		Executor: e,
		trace:    &tracer{w: e.out, verbosity: e.verbosity},
	}
	st, err := r.exec(e.prog, input, 0)
	if err != nil {
		e.log.Debugf("run failed: %v", err)
		return nil, err
	}
	e.log.Debugf("run finished: %d dice, total %d", st.Pool.Cardinality(), st.Pool.Total())
	return st, nil
}

// runner carries one run's tracer through nested executions.
type runner struct {
	*Executor
	trace *tracer
}

// exec runs prog over input, which it takes ownership of.
func (r *runner) exec(prog *Program, input *pool.Pool, nest int) (*State, error) {
	st := &State{Pool: input, Nest: nest, source: r.prog.Source, trace: r.trace}
	for i := range prog.Code {
		in := &prog.Code[i]
		if err := r.step(st, in); err != nil {
			var rerr *RuntimeError
			if errors.As(err, &rerr) {
				return nil, err
			}
			return nil, &RuntimeError{Offset: in.Offset, Op: in.Op, Err: err, source: st.source}
		}
	}
	return st, nil
}

// step applies a single instruction to st.
func (r *runner) step(st *State, in *Instruction) error {
	switch in.Op {
	case OpPushInt:
		st.push(in.Arg)

	case OpPushSum:
		s := st.Pool.Total()
		if st.tracing() {
			st.tracef("Sum is %d", s)
		}
		st.push(s)

	case OpPushCount:
		c := st.Pool.Cardinality()
		if st.tracing() {
			st.tracef("Count is %d", c)
		}
		st.push(c)

	case OpRoll:
		sides, err := st.pop()
		if err != nil {
			return err
		}
		count, err := st.pop()
		if err != nil {
			return err
		}
		if sides <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidSides, sides)
		}
		if count < 0 {
			return fmt.Errorf("%w: got %d", ErrNegativeDice, count)
		}
		values := make([]int, count)
		for i := range values {
			values[i] = rollDie(r.rng, sides)
		}
		st.Pool = pool.New(values...)
		if st.tracing() {
			st.tracef("Rolled %dD%d, got:", count, sides)
			st.tracef("%s", st.Pool)
		}

	case OpKeepGeq, OpKeepLeq:
		t, err := st.pop()
		if err != nil {
			return err
		}
		before := st.Pool.Cardinality()
		if in.Op == OpKeepGeq {
			st.Pool = st.Pool.SubsetGeq(t)
		} else {
			st.Pool = st.Pool.SubsetLeq(t)
		}
		if st.tracing() {
			sign := "+"
			if in.Op == OpKeepLeq {
				sign = "-"
			}
			after := st.Pool.Cardinality()
			st.tracef("Pass on %d%s", t, sign)
			st.tracef("Removed %d dice, leaving %d", before-after, after)
		}

	case OpTop:
		k, err := st.pop()
		if err != nil {
			return err
		}
		st.Pool = st.Pool.TopK(k)
		if st.tracing() {
			st.tracef("Grabbing top %d dice", k)
		}

	case OpBottom:
		k, err := st.pop()
		if err != nil {
			return err
		}
		st.Pool = st.Pool.BottomK(k)
		if st.tracing() {
			st.tracef("Grabbing bottom %d dice", k)
		}

	case OpScale:
		k, err := st.pop()
		if err != nil {
			return err
		}
		st.Pool.Scale(k)
		if st.tracing() {
			st.tracef("Multiplied pool by %d", k)
		}

	case OpAddDie, OpAddNeg:
		v, err := st.pop()
		if err != nil {
			return err
		}
		if in.Op == OpAddNeg {
			v = -v
		}
		st.Pool.AddDie(v)
		if st.tracing() {
			st.tracef("Added %+d to pool", v)
		}

	case OpGraph:
		if st.tracing() {
			st.tracef("Graphing...")
		}
		if r.grapher == nil {
			r.log.Debugf("no grapher configured, skipping graph of %d values", st.Pool.Cardinality())
			return nil
		}
		if err := r.grapher.Graph(st.Pool.ToSequence()); err != nil {
			return fmt.Errorf("graph: %w", err)
		}

	case OpVerbosity:
		v, err := st.pop()
		if err != nil {
			return err
		}
		r.trace.verbosity = v
		st.tracef("Verbosity set to %d", v)

	case OpRepeat:
		return r.repeatBlock(st, in)

	case OpFilter:
		return r.filterBlock(st, in)

	default:
		return fmt.Errorf("unknown opcode %s", in.Op)
	}
	return nil
}

// repeatBlock hands the pool to the block body and replaces it with the
// merged results of every repetition. Zero repetitions leave it untouched.
func (r *runner) repeatBlock(st *State, in *Instruction) error {
	reps, err := st.pop()
	if err != nil {
		return err
	}
	if reps < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeRepeat, reps)
	}
	if reps == 0 {
		if st.tracing() {
			st.tracef("Rep target is 0, not running sub block")
		}
		return nil
	}

	input := st.Pool
	agg, err := r.repeat(st, in.Body, reps, func(int) *pool.Pool { return input.Clone() })
	if err != nil {
		return err
	}
	st.Pool = agg
	if st.tracing() {
		st.tracef("Sub-block finished %d reps, added %d values", reps, agg.Cardinality())
	}
	return nil
}

// filterBlock removes the dice matched by the filter program from the pool
// and, when a dependent block follows, merges that block's results back in.
func (r *runner) filterBlock(st *State, in *Instruction) error {
	sub, err := r.exec(in.Filter, st.Pool.Clone(), st.Nest+1)
	if err != nil {
		return err
	}
	matched := sub.Pool
	if st.tracing() {
		st.tracef("Removing %d values from outer pool", matched.Cardinality())
	}
	if err := st.Pool.Subtract(matched); err != nil {
		return err
	}
	if in.Body == nil {
		return nil
	}

	var (
		reps  int
		input func(int) *pool.Pool
	)
	if in.PerDie {
		dice := matched.ToSequence()
		reps = len(dice)
		input = func(i int) *pool.Pool { return pool.New(dice[i]) }
	} else {
		if reps, err = st.pop(); err != nil {
			return err
		}
		if reps < 0 {
			return fmt.Errorf("%w: got %d", ErrNegativeRepeat, reps)
		}
		input = func(int) *pool.Pool { return matched.Clone() }
	}

	if st.tracing() {
		st.tracef("Passing %d values to inner code block", matched.Cardinality())
	}
	agg, err := r.repeat(st, in.Body, reps, input)
	if err != nil {
		return err
	}
	st.Pool.Merge(agg)
	return nil
}

// repeat runs body reps times one nest level below st. A repetition that
// ends with values on its argument stack contributes those values as dice;
// otherwise it contributes its pool.
func (r *runner) repeat(st *State, body *Program, reps int, input func(int) *pool.Pool) (*pool.Pool, error) {
	agg := pool.New()
	for i := range reps {
		if st.tracing() {
			st.tracef("Sub-block run %d of %d", i+1, reps)
		}
		sub, err := r.exec(body, input(i), st.Nest+1)
		if err != nil {
			return nil, err
		}
		if len(sub.Stack) > 0 {
			agg.AddMany(sub.Stack)
		} else {
			agg.Merge(sub.Pool)
		}
	}
	return agg, nil
}

// rollDie rolls a die with the provided number of sides.
func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}

// seedSource is where NewSeed reads entropy from.
var seedSource io.Reader = crand.Reader

// fallbackSeed is used when seedSource fails. Every such run is identical.
const fallbackSeed = 1

// NewSeed draws a seed from crypto/rand. If the system source is unavailable
// it logs a warning and returns a fixed seed.
func NewSeed() int64 {
	var b [8]byte
	if _, err := io.ReadFull(seedSource, b[:]); err != nil {
		log.Warningf("no entropy for seed, using fixed seed %d: %v", fallbackSeed, err)
		return fallbackSeed
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
