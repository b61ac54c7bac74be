package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"forestnav/internal/domain"
)

// Summary is the descriptive statistics of one column. Fields other than
// Count are missing when there is no data; Std also needs two values.
type Summary struct {
	Count  int          `json:"count"`
	Mean   domain.Value `json:"mean"`
	Std    domain.Value `json:"std"`
	Min    domain.Value `json:"min"`
	Q1     domain.Value `json:"q1"`
	Median domain.Value `json:"median"`
	Q3     domain.Value `json:"q3"`
	Max    domain.Value `json:"max"`
}

// Describe summarizes the present values. Std is the sample standard
// deviation; quartiles interpolate linearly between closest ranks.
func Describe(values []domain.Value) Summary {
	data := domain.Present(values)
	s := Summary{Count: len(data)}
	if len(data) == 0 {
		return s
	}
	slices.Sort(data)

	s.Mean = domain.Some(stat.Mean(data, nil))
	if len(data) > 1 {
		s.Std = domain.Some(stat.StdDev(data, nil))
	}
	s.Min = domain.Some(floats.Min(data))
	s.Max = domain.Some(floats.Max(data))
	s.Q1 = domain.Some(quantile(data, 0.25))
	s.Median = domain.Some(quantile(data, 0.5))
	s.Q3 = domain.Some(quantile(data, 0.75))
	return s
}

// quantile interpolates linearly between the two order statistics around
// rank p*(n-1). sorted must be ascending and non-empty.
func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
