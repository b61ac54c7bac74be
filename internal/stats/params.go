package stats

import (
	"math"
	"strconv"
	"strings"
)

// BinParams are user overrides for a histogram. The zero value overrides
// nothing.
type BinParams struct {
	Range *Range `json:"range,omitempty"`
	// Bins is 0 when not overridden.
	Bins int `json:"bins,omitempty"`
}

// MaxBins caps the bin count of any histogram.
const MaxBins = 10000

// ResolveBins turns a bin width into a bin count in [1, MaxBins]. Without a
// range the width is read as the count itself; with one the span is divided
// by it. A non-positive width gives 1.
func ResolveBins(width float64, rng *Range) int {
	n := binCount(width, rng)
	switch {
	case math.IsNaN(n) || n < 1:
		return 1
	case n > MaxBins:
		return MaxBins
	}
	return int(n)
}

func binCount(width float64, rng *Range) float64 {
	if width <= 0 {
		return 1
	}
	if rng == nil {
		return math.Round(width)
	}
	return math.Round(rng.Span() / width)
}

// ParseBinParams reads free-form start, end and width text. A range is set
// only when both bounds parse and start < end; a width applies only when it
// is positive and yields at most MaxBins bins. Text that does not parse as a number discards all overrides.
func ParseBinParams(start, end, width string) BinParams {
	start, end, width = strings.TrimSpace(start), strings.TrimSpace(end), strings.TrimSpace(width)

	var p BinParams
	if start != "" && end != "" {
		lo, err := parseFinite(start)
		if err != nil {
			return BinParams{}
		}
		hi, err := parseFinite(end)
		if err != nil {
			return BinParams{}
		}
		if lo < hi {
			p.Range = &Range{Min: lo, Max: hi}
		}
	}
	if width != "" {
		w, err := parseFinite(width)
		if err != nil {
			return BinParams{}
		}
		if n := binCount(w, p.Range); w > 0 && n <= MaxBins {
			p.Bins = ResolveBins(w, p.Range)
		}
	}
	return p
}

// BinsOr returns the overridden bin count, or def.
func (p BinParams) BinsOr(def int) int {
	if p.Bins > 0 {
		return p.Bins
	}
	return def
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}
