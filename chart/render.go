package chart

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

// DefaultWidth is the length in characters of the tallest bar.
const DefaultWidth = 50

// quartile marker colours: green, red, blue.
var markerColors = [3]string{"2", "1", "4"}

// Renderer writes distributions as horizontal text bar charts. It implements
// vm.Grapher.
type Renderer struct {
	out   *termenv.Output
	width int
}

// NewRenderer creates a renderer writing to w. Colour is used only when w is
// a terminal that supports it, unless opts force a profile.
func NewRenderer(w io.Writer, width int, opts ...termenv.OutputOption) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{out: termenv.NewOutput(w, opts...), width: width}
}

// Graph charts a flattened pool.
func (r *Renderer) Graph(values []int) error {
	d, err := Histogram(values)
	if err != nil {
		return err
	}
	return r.Render(d)
}

// Render writes one chart: a title, one row per bar with its percentage and
// any quartile that falls inside it, and a quartile summary line.
func (r *Renderer) Render(d *Distribution) error {
	q := d.Quartiles()
	maxCount := d.MaxCount()
	labelWidth := max(
		len(strconv.Itoa(d.Bars[0].Value)),
		len(strconv.Itoa(d.Bars[len(d.Bars)-1].Value)),
	)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pool distribution for %s values", humanize.Comma(int64(d.Total)))
	if d.Increment != 1 {
		fmt.Fprintf(&sb, " (bar width %d)", d.Increment)
	}
	sb.WriteByte('\n')

	half := float64(d.Increment) / 2
	for _, b := range d.Bars {
		n := int(math.Round(float64(b.Count) * float64(r.width) / float64(maxCount)))
		if b.Count > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(&sb, "%*d | %-*s %6.2f%%", labelWidth, b.Value, r.width, strings.Repeat("#", n), d.Percent(b))

		lo, hi := float64(b.Value)-half, float64(b.Value)+half
		for i, qv := range q {
			if qv >= lo && qv < hi {
				sb.WriteString(" " + r.marker(i))
			}
		}
		sb.WriteByte('\n')
	}

	for i, qv := range q {
		if i > 0 {
			sb.WriteString("  ")
		}
		fmt.Fprintf(&sb, "%s: %.2f", r.marker(i), qv)
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *Renderer) marker(i int) string {
	return r.out.String(fmt.Sprintf("Q%d", i+1)).Foreground(r.out.Color(markerColors[i])).String()
}
