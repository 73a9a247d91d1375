package domain

import (
	"math"
	"strings"
)

// Tagged is a marker with the epochs covering it.
type Tagged struct {
	MarkerID int64
	Time     float64
	Label    string
	Epochs   []string
}

// Row is one (marker, active epoch) pair handed to the statistics aggregator.
// IBI is the interval to the previous marker in the full marker set.
type Row struct {
	MarkerID int64
	Time     float64
	Label    string
	Epoch    string
	IBI      float64
}

// Tag evaluates membership for markers given in ascending time order.
func Tag(epochs []Epoch, markers []Tagged) []Tagged {
	out := make([]Tagged, len(markers))
	for i, m := range markers {
		m.Epochs = Membership(epochs, m.Time)
		out[i] = m
	}
	return out
}

// Explode emits one row per active epoch of each tagged marker. The first
// marker has no interval and yields no rows.
func Explode(tagged []Tagged, sel *Selection) []Row {
	var rows []Row
	for i, m := range tagged {
		if i == 0 {
			continue
		}
		ibi := m.Time - tagged[i-1].Time
		if math.IsNaN(ibi) {
			continue
		}
		for _, name := range m.Epochs {
			if !sel.Active(name) {
				continue
			}
			rows = append(rows, Row{MarkerID: m.MarkerID, Time: m.Time, Label: m.Label, Epoch: name, IBI: ibi})
		}
	}
	return rows
}

// Span is the marker extent of one epoch.
type Span struct {
	Name  string
	Start float64
	End   float64
	Count int
}

// Spans groups rows by epoch in order of first appearance.
func Spans(rows []Row) []Span {
	idx := map[string]int{}
	var out []Span
	for _, r := range rows {
		i, ok := idx[r.Epoch]
		if !ok {
			idx[r.Epoch] = len(out)
			out = append(out, Span{Name: r.Epoch, Start: r.Time, End: r.Time, Count: 1})
			continue
		}
		sp := &out[i]
		sp.Start = math.Min(sp.Start, r.Time)
		sp.End = math.Max(sp.End, r.Time)
		sp.Count++
	}
	return out
}

// Index caches the membership of every sample of a series. Samples with equal
// membership share one slice.
type Index struct {
	memberships [][]string
	bySample    []int
}

func NewIndex(epochs []Epoch, times []float64) Index {
	ix := Index{bySample: make([]int, len(times))}
	seen := map[string]int{}
	for i, t := range times {
		names := Membership(epochs, t)
		key := strings.Join(names, "\x00")
		id, ok := seen[key]
		if !ok {
			id = len(ix.memberships)
			seen[key] = id
			ix.memberships = append(ix.memberships, names)
		}
		ix.bySample[i] = id
	}
	return ix
}

func (ix Index) Len() int { return len(ix.bySample) }

// At returns the membership of sample i. Callers must not modify it.
func (ix Index) At(i int) []string {
	if i < 0 || i >= len(ix.bySample) {
		return nil
	}
	return ix.memberships[ix.bySample[i]]
}
