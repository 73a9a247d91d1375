package editor

import (
	"math"

	sessiondto "beatmark/internal/modules/session/dto"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// Column maps t onto one of width columns spanning [from, to). ok is false
// when t falls outside the span.
func Column(t, from, to float64, width int) (int, bool) {
	if width <= 0 || to <= from {
		return 0, false
	}
	if t < from || t > to {
		return 0, false
	}
	col := int(math.Floor((t - from) / (to - from) * float64(width)))
	if col >= width {
		col = width - 1
	}
	return col, true
}

// ColumnTime is the time at the centre of column col. Columns past either
// edge extrapolate.
func ColumnTime(col int, from, to float64, width int) float64 {
	if width <= 0 {
		return from
	}
	return from + (float64(col)+0.5)*(to-from)/float64(width)
}

// PlotCells draws min/max buckets into rows lines, top row first.
func PlotCells(trace sessiondto.TraceOutput, rows int) [][]rune {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = make([]rune, len(trace.Buckets))
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}
	if rows == 0 || !trace.Available {
		return grid
	}
	span := trace.Max - trace.Min
	level := func(v float64) int {
		if span <= 0 {
			return rows / 2
		}
		r := int(math.Round((trace.Max - v) / span * float64(rows-1)))
		return max(0, min(rows-1, r))
	}
	for c, b := range trace.Buckets {
		if b.Empty {
			continue
		}
		top, bottom := level(b.Max), level(b.Min)
		if top == bottom {
			grid[top][c] = '•'
			continue
		}
		for r := top; r <= bottom; r++ {
			grid[r][c] = '│'
		}
	}
	return grid
}

// Sparkline renders one row of bucket maxima.
func Sparkline(trace sessiondto.TraceOutput) []rune {
	out := make([]rune, len(trace.Buckets))
	span := trace.Max - trace.Min
	for c, b := range trace.Buckets {
		switch {
		case b.Empty || !trace.Available:
			out[c] = ' '
		case span <= 0:
			out[c] = sparks[len(sparks)/2]
		default:
			i := int((b.Max - trace.Min) / span * float64(len(sparks)-1))
			out[c] = sparks[max(0, min(len(sparks)-1, i))]
		}
	}
	return out
}
