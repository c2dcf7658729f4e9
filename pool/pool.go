// Package pool implements the dice pool: a multiset of integer die values.
//
// A Pool maps each die value to the number of dice currently showing it.
// Buckets never hold a zero or negative count; a bucket that drops to zero
// is removed. Dice sharing a face are indistinguishable, so every operation
// works on whole buckets and only splits a bucket when a rank selection
// (TopK, BottomK) needs part of it.
package pool

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// ErrNotPresent is returned by Subtract when the pool does not hold every
// die being removed.
var ErrNotPresent = errors.New("cannot remove dice that are not in the pool")

// Pool is a multiset of die values. The zero value is not usable; use New.
type Pool struct {
	counts map[int]int
}

// New creates a pool holding the given values.
func New(values ...int) *Pool {
	p := &Pool{counts: make(map[int]int, len(values))}
	p.AddMany(values)
	return p
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	return &Pool{counts: maps.Clone(p.counts)}
}

// AddDie adds one die showing v.
func (p *Pool) AddDie(v int) {
	p.counts[v]++
}

// AddMany adds one die for each value.
func (p *Pool) AddMany(values []int) {
	for _, v := range values {
		p.counts[v]++
	}
}

// Merge adds every die of other to p.
func (p *Pool) Merge(other *Pool) {
	for v, n := range other.counts {
		p.counts[v] += n
	}
}

// Subtract removes every die of other from p. If p lacks any of them it
// returns ErrNotPresent and leaves p unchanged.
func (p *Pool) Subtract(other *Pool) error {
	for v, n := range other.counts {
		if p.counts[v] < n {
			return fmt.Errorf("%w: want %d of %d, have %d", ErrNotPresent, n, v, p.counts[v])
		}
	}
	for v, n := range other.counts {
		left := p.counts[v] - n
		if left == 0 {
			delete(p.counts, v)
			continue
		}
		p.counts[v] = left
	}
	return nil
}

// Scale multiplies every die value by k. Counts are unchanged, except that
// buckets which collide after scaling are merged. Products wrap on int
// overflow, as Go multiplication does: MaxInt scaled by 2 is -2.
func (p *Pool) Scale(k int) {
	scaled := make(map[int]int, len(p.counts))
	for v, n := range p.counts {
		scaled[v*k] += n
	}
	p.counts = scaled
}

// SubsetGeq returns a new pool with the dice whose value is >= t.
func (p *Pool) SubsetGeq(t int) *Pool {
	return p.subset(func(v int) bool { return v >= t })
}

// SubsetLeq returns a new pool with the dice whose value is <= t.
func (p *Pool) SubsetLeq(t int) *Pool {
	return p.subset(func(v int) bool { return v <= t })
}

// SubsetEq returns a new pool with the dice showing exactly v.
func (p *Pool) SubsetEq(v int) *Pool {
	return p.subset(func(x int) bool { return x == v })
}

func (p *Pool) subset(keep func(int) bool) *Pool {
	out := New()
	for v, n := range p.counts {
		if keep(v) {
			out.counts[v] = n
		}
	}
	return out
}

// TopK returns a new pool with the k highest dice. k <= 0 yields an empty
// pool; k beyond the cardinality yields a copy of the whole pool.
func (p *Pool) TopK(k int) *Pool {
	values := p.Values()
	slices.Reverse(values)
	return p.take(values, k)
}

// BottomK returns a new pool with the k lowest dice.
func (p *Pool) BottomK(k int) *Pool {
	return p.take(p.Values(), k)
}

// take consumes whole buckets in the given order until k dice are taken,
// splitting the boundary bucket.
func (p *Pool) take(order []int, k int) *Pool {
	out := New()
	for _, v := range order {
		if k <= 0 {
			break
		}
		n := min(p.counts[v], k)
		out.counts[v] = n
		k -= n
	}
	return out
}

// Cardinality returns the number of dice in the pool.
func (p *Pool) Cardinality() int {
	total := 0
	for _, n := range p.counts {
		total += n
	}
	return total
}

// Total returns the sum of all die values.
func (p *Pool) Total() int {
	total := 0
	for v, n := range p.counts {
		total += v * n
	}
	return total
}

// Count returns how many dice show v.
func (p *Pool) Count(v int) int {
	return p.counts[v]
}

// Values returns the distinct die values in ascending order.
func (p *Pool) Values() []int {
	return slices.Sorted(maps.Keys(p.counts))
}

// All yields each distinct value with its count, in ascending value order.
func (p *Pool) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for _, v := range p.Values() {
			if !yield(v, p.counts[v]) {
				return
			}
		}
	}
}

// ToSequence flattens the pool into one entry per die, ascending.
func (p *Pool) ToSequence() []int {
	seq := make([]int, 0, p.Cardinality())
	for v, n := range p.All() {
		for range n {
			seq = append(seq, v)
		}
	}
	return seq
}

// Equal reports whether both pools hold the same dice.
func (p *Pool) Equal(other *Pool) bool {
	return maps.Equal(p.counts, other.counts)
}

// String renders the pool as "value:count" pairs, lowest value first.
func (p *Pool) String() string {
	if len(p.counts) == 0 {
		return "Empty pool"
	}
	parts := make([]string, 0, len(p.counts))
	for v, n := range p.All() {
		parts = append(parts, fmt.Sprintf("%d:%d", v, n))
	}
	return strings.Join(parts, " - ")
}
