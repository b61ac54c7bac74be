// Package stats bins and summarizes numeric columns of a dataset.
// Everything here is a pure function over its inputs.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"forestnav/internal/domain"
)

// DefaultBins is the bin count used when the caller gives none.
const DefaultBins = 20

// Range bounds a histogram. Both edges are inclusive.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Span is Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Bucket is one histogram bin. Edges are rounded to two decimals.
type Bucket struct {
	Start float64 `json:"binStart"`
	End   float64 `json:"binEnd"`
	Count int     `json:"count"`
}

// Histogram counts the present values into bins with evenly spaced edges.
//
// Missing values are dropped first. Without rng the observed min and max
// of the remaining values bound the bins; a degenerate range is widened by
// 0.5 on each side. Each bin is half open except the last, which also takes
// its upper edge. Values outside the range are not counted, so the counts
// sum to the number of present values inside it.
//
// bins <= 0 means DefaultBins and counts above MaxBins are clamped. With no data and no range, or an inverted
// range, there is nothing to bin and Histogram returns nil.
func Histogram(values []domain.Value, bins int, rng *Range) []Bucket {
	if bins <= 0 {
		bins = DefaultBins
	}
	bins = min(bins, MaxBins)
	data := domain.Present(values)

	var lo, hi float64
	switch {
	case rng != nil:
		lo, hi = rng.Min, rng.Max
	case len(data) == 0:
		return nil
	default:
		lo, hi = floats.Min(data), floats.Max(data)
	}
	if lo > hi || math.IsNaN(lo) || math.IsNaN(hi) {
		return nil
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = hi
	counts := make([]int, bins)
	for _, v := range data {
		if i, ok := binIndex(v, edges); ok {
			counts[i]++
		}
	}

	out := make([]Bucket, bins)
	for i := range out {
		out[i] = Bucket{Start: round2(edges[i]), End: round2(edges[i+1]), Count: counts[i]}
	}
	return out
}

// binIndex locates v among evenly spaced edges. The arithmetic guess is
// corrected against the actual edge values so that floating point error
// never moves a value across an edge.
func binIndex(v float64, edges []float64) (int, bool) {
	n := len(edges) - 1
	lo, hi := edges[0], edges[n]
	if v < lo || v > hi {
		return 0, false
	}
	i := int((v - lo) / (hi - lo) * float64(n))
	if i >= n {
		i = n - 1
	}
	switch {
	case v < edges[i]:
		i--
	case i < n-1 && v >= edges[i+1]:
		i++
	}
	return i, true
}

// Total sums the bucket counts.
func Total(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
