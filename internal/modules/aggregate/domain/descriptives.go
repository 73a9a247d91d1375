package domain

import (
	"math"
	"sort"
)

// Statistic names computed by Describe.
const (
	StatCount = "n"
	StatMean  = "mean"
	StatStd   = "std"
	StatMin   = "min"
	StatMax   = "max"
	StatHR    = "hr"
	StatRMSSD = "rmssd"
	StatSDNN  = "sdnn"
	StatSD1   = "sd1"
	StatSD2   = "sd2"
)

var Descriptives = []string{StatCount, StatMean, StatStd, StatMin, StatMax, StatHR, StatRMSSD, StatSDNN, StatSD1, StatSD2}

// Describe groups samples by epoch, keeping their order, and computes interval
// statistics for each group. Values that need more intervals than a group has
// are left out.
func Describe(samples []Sample, want []string) Result {
	groups := map[string][]float64{}
	for _, s := range samples {
		groups[s.Epoch] = append(groups[s.Epoch], s.IBI)
	}
	keep := func(string) bool { return true }
	if len(want) > 0 {
		set := map[string]bool{}
		for _, w := range want {
			set[w] = true
		}
		keep = func(name string) bool { return set[name] }
	}

	out := Result{}
	for epoch, ibi := range groups {
		values := map[string]float64{}
		put := func(name string, v float64) {
			if keep(name) && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[name] = v
			}
		}
		n := len(ibi)
		mean := meanOf(ibi)
		put(StatCount, float64(n))
		put(StatMean, mean)
		sorted := append([]float64(nil), ibi...)
		sort.Float64s(sorted)
		put(StatMin, sorted[0])
		put(StatMax, sorted[n-1])
		if mean > 0 {
			put(StatHR, 60/mean)
		}
		put(StatSDNN, stdOf(ibi, 0))
		if n >= 2 {
			put(StatStd, stdOf(ibi, 1))
			diffs := make([]float64, n-1)
			sums := make([]float64, n-1)
			var sq float64
			for i := 1; i < n; i++ {
				d := ibi[i] - ibi[i-1]
				sq += d * d
				diffs[i-1] = d / math.Sqrt2
				sums[i-1] = (ibi[i] + ibi[i-1]) / math.Sqrt2
			}
			put(StatRMSSD, math.Sqrt(sq/float64(n-1)))
			put(StatSD1, stdOf(diffs, 0))
			put(StatSD2, stdOf(sums, 0))
		}
		out[epoch] = values
	}
	return out
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdOf is the standard deviation with ddof degrees of freedom removed.
func stdOf(xs []float64, ddof int) float64 {
	if len(xs) <= ddof {
		return math.NaN()
	}
	m := meanOf(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-ddof))
}
