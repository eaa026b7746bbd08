// Package metrics computes inequality statistics over person capital.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUndefinedMetric is returned when a statistic has no meaningful value for
// the input, e.g. Gini over an empty population or zero total capital.
var ErrUndefinedMetric = errors.New("undefined metric")

// sorted returns an ascending copy of xs.
func sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// Gini returns the Gini coefficient of xs:
//
//	b = Σ x_i·(n−i) / (n·Σx)   over ascending x, 0-indexed i
//	G = 1 + 1/n − 2b
//
// It requires n > 0 and Σx > 0.
func Gini(xs []float64) (float64, error) {
	n := len(xs)
	if n == 0 {
		return 0, fmt.Errorf("gini of empty population: %w", ErrUndefinedMetric)
	}
	x := sorted(xs)

	total := 0.0
	weighted := 0.0
	for i, xi := range x {
		total += xi
		weighted += xi * float64(n-i)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("gini with total capital %g: %w", total, ErrUndefinedMetric)
	}

	fn := float64(n)
	b := weighted / (fn * total)
	return 1 + 1/fn - 2*b, nil
}

// MinMax returns the smallest and largest values of xs.
func MinMax(xs []float64) (lo, hi float64, err error) {
	if len(xs) == 0 {
		return 0, 0, fmt.Errorf("min/max of empty population: %w", ErrUndefinedMetric)
	}
	x := sorted(xs)
	return x[0], x[len(x)-1], nil
}

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram splits [min, max] into equal-width bins. The last bin is closed
// so the maximum is counted. When every value is equal a single bin is returned.
func Histogram(xs []float64, bins int) ([]Bin, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("histogram with %d bins", bins)
	}
	lo, hi, err := MinMax(xs)
	if err != nil {
		return nil, err
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(xs)}}, nil
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out, nil
}
