package chart

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestIncrement(t *testing.T) {
	tests := []struct {
		distinct []int
		want     int
	}{
		{[]int{4}, 1},
		{[]int{1, 2, 3}, 1},
		{[]int{1, 3, 5}, 2},
		{[]int{1, 4, 7}, 3},
		{[]int{1, 4, 7, 9}, 1},
		{[]int{-6, 0, 12}, 6},
	}
	for _, tt := range tests {
		got, err := Increment(tt.distinct)
		if err != nil || got != tt.want {
			t.Errorf("Increment(%v) = %d, %v; want %d", tt.distinct, got, err, tt.want)
		}
	}
}

func TestHistogramExtremeValues(t *testing.T) {
	const k = math.MaxInt
	tests := []struct {
		name   string
		values []int
		want   []Bar
		err    error
	}{
		{"single max", []int{k}, []Bar{{k, 1}}, nil},
		{"single min", []int{math.MinInt}, []Bar{{math.MinInt, 1}}, nil},
		{"symmetric", []int{-k, 0, k, k}, []Bar{{-k, 1}, {0, 1}, {k, 2}}, nil},
		{"max and zero", []int{0, k}, []Bar{{0, 1}, {k, 1}}, nil},
		{"width overflows", []int{math.MinInt + 1, k}, nil, ErrRange},
		{"full range", []int{math.MinInt, k}, nil, ErrRange},
		{"too many bars", []int{0, 1, k}, nil, ErrRange},
		{"just too many bars", []int{0, 1, MaxBars}, nil, ErrRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Histogram(tt.values)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Histogram(%v) error = %v, want %v", tt.values, err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Histogram(%v) failed: %v", tt.values, err)
			}
			if len(d.Bars) != len(tt.want) {
				t.Fatalf("Bars = %v, want %v", d.Bars, tt.want)
			}
			for i := range tt.want {
				if d.Bars[i] != tt.want[i] {
					t.Errorf("Bars[%d] = %v, want %v", i, d.Bars[i], tt.want[i])
				}
			}
		})
	}

	// The widest range that still fits.
	d, err := Histogram([]int{0, 1, MaxBars - 1})
	if err != nil {
		t.Fatalf("Histogram(0, 1, MaxBars-1) failed: %v", err)
	}
	if len(d.Bars) != MaxBars {
		t.Errorf("len(Bars) = %d, want %d", len(d.Bars), MaxBars)
	}
}

func TestHistogramBars(t *testing.T) {
	d, err := Histogram([]int{5, 1, 5, 9})
	if err != nil {
		t.Fatal(err)
	}
	if d.Increment != 4 || d.Total != 4 {
		t.Errorf("Increment, Total = %d, %d; want 4, 4", d.Increment, d.Total)
	}
	want := []Bar{{1, 1}, {5, 2}, {9, 1}}
	if len(d.Bars) != len(want) {
		t.Fatalf("Bars = %v, want %v", d.Bars, want)
	}
	for i := range want {
		if d.Bars[i] != want[i] {
			t.Errorf("Bars[%d] = %v, want %v", i, d.Bars[i], want[i])
		}
	}

	// Gaps inside the range get empty bars.
	d, _ = Histogram([]int{1, 2, 4})
	if len(d.Bars) != 4 || d.Bars[2] != (Bar{3, 0}) {
		t.Errorf("Bars = %v, want an empty bar at 3", d.Bars)
	}
}

func TestHistogramEmpty(t *testing.T) {
	if _, err := Histogram(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Histogram(nil) error = %v, want ErrEmpty", err)
	}
	r := NewRenderer(&bytes.Buffer{}, 10)
	if err := r.Graph(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Graph(nil) error = %v, want ErrEmpty", err)
	}
}

func TestQuartiles(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   [3]float64
	}{
		{"single value", repeat(1, 10), [3]float64{0.75, 1, 1.25}},
		{"gapped", concat(repeat(1, 10), repeat(3, 20), repeat(5, 10)), [3]float64{2, 3, 4}},
		{"even thirds", concat(repeat(1, 10), repeat(2, 10), repeat(3, 10)), [3]float64{1.25, 2, 2.75}},
		{"wide bars", concat(repeat(1, 10), repeat(4, 10), repeat(7, 10)), [3]float64{1.75, 4, 6.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Histogram(tt.values)
			if err != nil {
				t.Fatal(err)
			}
			got := d.Quartiles()
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Quartiles() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, 8, termenv.WithProfile(termenv.Ascii))
	values := concat(repeat(1, 10), repeat(3, 20), repeat(5, 10))
	if err := r.Graph(values); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"Pool distribution for 40 values (bar width 2)",
		"1 | ####      25.00%",
		"3 | ########  50.00% Q1 Q2",
		"5 | ####      25.00% Q3",
		"Q1: 2.00  Q2: 3.00  Q3: 4.00",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("Render output:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderLargeCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, 0, termenv.WithProfile(termenv.Ascii))
	values := concat(repeat(2, 1500), repeat(3, 1))
	if err := r.Graph(values); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Pool distribution for 1,501 values\n") {
		t.Errorf("title = %q", strings.SplitN(out, "\n", 2)[0])
	}
	// A bar with any dice is never drawn empty.
	if !strings.Contains(out, "3 | # ") {
		t.Errorf("small bar not drawn:\n%s", out)
	}
}
