package domain

import (
	"fmt"
	"math"
	"sort"

	apperrors "beatmark/internal/platform/errors"
)

// Series is an ascending sequence of samples.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
	// Rate is the sample rate in Hz, declared by the loader or derived.
	Rate float64
}

// NewSeries validates the samples. A non-positive rate is derived from the
// mean sample spacing.
func NewSeries(name string, times, values []float64, rate float64) (Series, error) {
	if len(times) == 0 {
		return Series{}, fmt.Errorf("%w: series %q is empty", apperrors.ErrInvalidInput, name)
	}
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("%w: series %q has %d times and %d values", apperrors.ErrInvalidInput, name, len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return Series{}, fmt.Errorf("%w: series %q time decreases at sample %d", apperrors.ErrInvalidInput, name, i)
		}
	}
	if rate <= 0 {
		rate = DeriveRate(times)
	}
	return Series{Name: name, Times: times, Values: values, Rate: rate}, nil
}

// DeriveRate rounds the inverse of the mean sample spacing.
func DeriveRate(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return 0
	}
	return math.Round(float64(len(times)-1) / span)
}

func (s Series) Len() int { return len(s.Times) }

func (s Series) Start() float64 { return s.Times[0] }

func (s Series) End() float64 { return s.Times[len(s.Times)-1] }

// Span returns the sample index range [from, to) with lo <= t <= hi.
func (s Series) Span(lo, hi float64) (int, int) {
	from := sort.SearchFloat64s(s.Times, lo)
	to := sort.Search(len(s.Times), func(i int) bool { return s.Times[i] > hi })
	if to < from {
		to = from
	}
	return from, to
}

// ArgMaxStrict returns the time of the largest sample with lo < t < hi. The
// earliest sample wins a tie.
func (s Series) ArgMaxStrict(lo, hi float64) (float64, bool) {
	from := sort.Search(len(s.Times), func(i int) bool { return s.Times[i] > lo })
	best := -1
	for i := from; i < len(s.Times) && s.Times[i] < hi; i++ {
		if math.IsNaN(s.Values[i]) {
			continue
		}
		if best < 0 || s.Values[i] > s.Values[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return s.Times[best], true
}

// Nearest returns the value of the sample closest to t.
func (s Series) Nearest(t float64) float64 {
	i := sort.SearchFloat64s(s.Times, t)
	switch {
	case i >= len(s.Times):
		return s.Values[len(s.Values)-1]
	case i > 0 && t-s.Times[i-1] < s.Times[i]-t:
		return s.Values[i-1]
	default:
		return s.Values[i]
	}
}

// Bucket is the value envelope of one screen column.
type Bucket struct {
	Min, Max float64
	Empty    bool
}

// Envelope splits [lo, hi] into n columns and records min/max per column.
func (s Series) Envelope(lo, hi float64, n int) []Bucket {
	out := make([]Bucket, n)
	for i := range out {
		out[i].Empty = true
	}
	if n == 0 || hi <= lo {
		return out
	}
	from, to := s.Span(lo, hi)
	step := (hi - lo) / float64(n)
	for i := from; i < to; i++ {
		col := int((s.Times[i] - lo) / step)
		if col >= n {
			col = n - 1
		}
		v := s.Values[i]
		b := &out[col]
		if b.Empty {
			*b = Bucket{Min: v, Max: v}
			continue
		}
		b.Min = math.Min(b.Min, v)
		b.Max = math.Max(b.Max, v)
	}
	return out
}

// Range returns the minimum and maximum value inside [lo, hi].
func (s Series) Range(lo, hi float64) (float64, float64, bool) {
	from, to := s.Span(lo, hi)
	if from >= to {
		return 0, 0, false
	}
	mn, mx := math.Inf(1), math.Inf(-1)
	for _, v := range s.Values[from:to] {
		mn = math.Min(mn, v)
		mx = math.Max(mx, v)
	}
	return mn, mx, true
}
