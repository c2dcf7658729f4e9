// Package chart turns a flattened dice pool into a distribution and renders
// it as a text bar chart with quartile markers.
package chart

import (
	"errors"
	"math"
	"slices"
)

// MaxBars is the largest number of bars a distribution may have.
const MaxBars = 1 << 16

var (
	// ErrEmpty is returned when there are no values to chart.
	ErrEmpty = errors.New("chart: no values")
	// ErrRange is returned when the values span more than MaxBars bars, or
	// when the bar width itself does not fit in an int.
	ErrRange = errors.New("chart: value range too wide")
)

// Bar is one histogram column. Its width on the value axis is the
// distribution's Increment, centred on Value.
type Bar struct {
	Value int
	Count int
}

// Distribution is the histogram of a value sequence. Bars run from the
// smallest to the largest value in steps of Increment; values in between
// that never occur get an empty bar.
type Distribution struct {
	Bars      []Bar
	Increment int
	Total     int // number of values
}

// Histogram counts values into bars.
func Histogram(values []int) (*Distribution, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}
	distinct := make([]int, 0, len(counts))
	for v := range counts {
		distinct = append(distinct, v)
	}
	slices.Sort(distinct)

	inc, err := Increment(distinct)
	if err != nil {
		return nil, err
	}
	lo, hi := distinct[0], distinct[len(distinct)-1]
	steps := distance(lo, hi) / uint64(inc)
	if steps >= MaxBars {
		return nil, ErrRange
	}

	d := &Distribution{Increment: inc, Total: len(values)}
	for i := range steps + 1 {
		// Exact in two's complement: every bar value lies in [lo, hi].
		v := int(uint64(lo) + i*uint64(inc))
		d.Bars = append(d.Bars, Bar{Value: v, Count: counts[v]})
	}
	return d, nil
}

// Increment returns the bar width for a sorted set of distinct values: the
// greatest common divisor of the gaps between neighbours, or 1 when there is
// only one value. Gaps are measured without overflow; a width larger than
// math.MaxInt is ErrRange.
func Increment(distinct []int) (int, error) {
	var inc uint64
	for i := 1; i < len(distinct); i++ {
		inc = gcd(inc, distance(distinct[i-1], distinct[i]))
	}
	if inc == 0 {
		return 1, nil
	}
	if inc > math.MaxInt {
		return 0, ErrRange
	}
	return int(inc), nil
}

// distance returns hi-lo for lo <= hi, which always fits in a uint64.
func distance(lo, hi int) uint64 {
	return uint64(hi) - uint64(lo)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Percent returns the share of all values that fall in b.
func (d *Distribution) Percent(b Bar) float64 {
	return 100 * float64(b.Count) / float64(d.Total)
}

// MaxCount returns the height of the tallest bar.
func (d *Distribution) MaxCount() int {
	m := 0
	for _, b := range d.Bars {
		m = max(m, b.Count)
	}
	return m
}

// Quartiles returns the points on the value axis with a quarter, half and
// three quarters of the histogram's area to their left. Each bar spans
// Increment units around its value and has area equal to its count, and the
// point is interpolated linearly within the bar that crosses the target.
func (d *Distribution) Quartiles() [3]float64 {
	return [3]float64{d.quantile(0.25), d.quantile(0.5), d.quantile(0.75)}
}

func (d *Distribution) quantile(frac float64) float64 {
	target := float64(d.Total) * frac
	area := 0.0
	inc := float64(d.Increment)
	for _, b := range d.Bars {
		next := area + float64(b.Count)
		if next > target {
			left := float64(b.Value) - inc/2
			height := float64(b.Count) / inc
			return left + (target-area)/height
		}
		area = next
	}
	last := d.Bars[len(d.Bars)-1]
	return float64(last.Value) + inc/2
}
