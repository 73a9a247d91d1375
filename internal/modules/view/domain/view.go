package domain

import (
	"fmt"
	"math"
	"sort"

	apperrors "beatmark/internal/platform/errors"
)

const (
	// EdgeFraction is the share of the window width, measured from each edge,
	// that grabs that edge in the overview.
	EdgeFraction = 0.3
	// MinWidth is the narrowest window in seconds.
	MinWidth = 0.1
)

type Bounds struct {
	Start, End float64
}

func (b Bounds) Width() float64 { return b.End - b.Start }

type Window struct {
	Start, End float64
}

func (w Window) Width() float64  { return w.End - w.Start }
func (w Window) Center() float64 { return (w.Start + w.End) / 2 }

// Contains is inclusive at both ends.
func (w Window) Contains(t float64) bool { return t >= w.Start && t <= w.End }

// DragStyle is chosen when an overview gesture starts.
type DragStyle int

const (
	DragNone DragStyle = iota
	DragResizeLeft
	DragResizeRight
	DragMove
)

func (d DragStyle) String() string {
	switch d {
	case DragResizeLeft:
		return "resize-left"
	case DragResizeRight:
		return "resize-right"
	case DragMove:
		return "move"
	default:
		return "none"
	}
}

type overviewDrag struct {
	style  DragStyle
	anchor float64
	origin Window
}

// Navigator owns the detail window inside the dataset bounds.
type Navigator struct {
	bounds Bounds
	win    Window
	drag   overviewDrag
}

// NewNavigator opens a window of width at the dataset start. A non-positive
// width, or one wider than the dataset, shows everything.
func NewNavigator(bounds Bounds, width float64) (*Navigator, error) {
	if !(bounds.End > bounds.Start) {
		return nil, fmt.Errorf("%w: dataset bounds [%g, %g]", apperrors.ErrInvalidRange, bounds.Start, bounds.End)
	}
	n := &Navigator{bounds: bounds}
	if width <= 0 {
		width = bounds.Width()
	}
	n.place(bounds.Start, width)
	return n, nil
}

func (n *Navigator) Bounds() Bounds { return n.bounds }
func (n *Navigator) Window() Window { return n.win }

// place moves the window to start with the given width, sliding it back
// inside the bounds so width survives. It reports whether sliding happened.
func (n *Navigator) place(start, width float64) bool {
	width = math.Max(width, math.Min(MinWidth, n.bounds.Width()))
	if width >= n.bounds.Width() {
		clamped := start != n.bounds.Start || width != n.bounds.Width()
		n.win = Window{Start: n.bounds.Start, End: n.bounds.End}
		return clamped
	}
	clamped := false
	if start < n.bounds.Start {
		start, clamped = n.bounds.Start, true
	}
	if start+width > n.bounds.End {
		start, clamped = n.bounds.End-width, true
	}
	n.win = Window{Start: start, End: start + width}
	return clamped
}

// truncate clips [start, end] to the bounds, narrowing the window if needed.
// A range below MinWidth widens to MinWidth around its own centre.
func (n *Navigator) truncate(start, end float64) bool {
	if end-start < MinWidth {
		c := (start + end) / 2
		n.place(c-MinWidth/2, MinWidth)
		return true
	}
	clamped := false
	if start < n.bounds.Start {
		start, clamped = n.bounds.Start, true
	}
	if end > n.bounds.End {
		end, clamped = n.bounds.End, true
	}
	if end-start < MinWidth {
		return n.place(start, MinWidth) || clamped
	}
	n.win = Window{Start: start, End: end}
	return clamped
}

// Set shows [start, end]. Inverted or empty ranges are rejected.
func (n *Navigator) Set(start, end float64) error {
	if !(end > start) {
		return fmt.Errorf("%w: window [%g, %g]", apperrors.ErrInvalidRange, start, end)
	}
	if n.truncate(start, end) {
		return apperrors.ErrOutOfBounds
	}
	return nil
}

// The navigation methods below return ErrOutOfBounds when the requested
// window had to be clamped. The clamped window is still applied.

func (n *Navigator) PageLeft() error {
	return n.result(n.place(n.win.Start-n.win.Width(), n.win.Width()))
}

func (n *Navigator) PageRight() error {
	return n.result(n.place(n.win.Start+n.win.Width(), n.win.Width()))
}

func (n *Navigator) JumpToStart() error {
	n.place(n.bounds.Start, n.win.Width())
	return nil
}

func (n *Navigator) JumpToEnd() error {
	n.place(n.bounds.End-n.win.Width(), n.win.Width())
	return nil
}

// ZoomIn divides the width by factor around the centre.
func (n *Navigator) ZoomIn(factor float64) error {
	f, ok := magnitude(factor)
	if !ok {
		return fmt.Errorf("%w: zoom factor %v", apperrors.ErrInvalidInput, factor)
	}
	return n.scale(1 / f)
}

// ZoomOut multiplies the width by factor around the centre.
func (n *Navigator) ZoomOut(factor float64) error {
	f, ok := magnitude(factor)
	if !ok {
		return fmt.Errorf("%w: zoom factor %v", apperrors.ErrInvalidInput, factor)
	}
	return n.scale(f)
}

// magnitude folds factors below one onto their reciprocal, so zoom direction
// comes from the method and not the factor.
func magnitude(factor float64) (float64, bool) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 || factor == 1 {
		return 0, false
	}
	if factor < 1 {
		return 1 / factor, true
	}
	return factor, true
}

func (n *Navigator) scale(by float64) error {
	c := n.win.Center()
	half := n.win.Width() * by / 2
	return n.result(n.truncate(c-half, c+half))
}

// NextMarker centres the window on the first time after the window end.
// times must be ascending. It reports whether the window moved.
func (n *Navigator) NextMarker(times []float64) bool {
	i := sort.Search(len(times), func(i int) bool { return times[i] > n.win.End })
	if i == len(times) {
		return false
	}
	n.centre(times[i])
	return true
}

// PrevMarker centres the window on the last time before the window start.
func (n *Navigator) PrevMarker(times []float64) bool {
	i := sort.Search(len(times), func(i int) bool { return times[i] >= n.win.Start })
	if i == 0 {
		return false
	}
	n.centre(times[i-1])
	return true
}

func (n *Navigator) centre(t float64) {
	w := n.win.Width()
	n.place(t-w/2, w)
}

// PressOverview picks the drag style for a press at t in the overview.
// A press outside the window starts nothing.
func (n *Navigator) PressOverview(t float64) DragStyle {
	n.drag = overviewDrag{}
	if !n.win.Contains(t) {
		return DragNone
	}
	tol := EdgeFraction * n.win.Width()
	style := DragMove
	switch {
	case math.Abs(t-n.win.Start) < tol:
		style = DragResizeLeft
	case math.Abs(t-n.win.End) < tol:
		style = DragResizeRight
	}
	n.drag = overviewDrag{style: style, anchor: t, origin: n.win}
	return style
}

// MoveOverview applies the active overview drag for the pointer at t.
func (n *Navigator) MoveOverview(t float64) {
	d := n.drag
	switch d.style {
	case DragMove:
		n.place(d.origin.Start+(t-d.anchor), d.origin.Width())
	case DragResizeLeft:
		start := math.Max(n.bounds.Start, math.Min(t, d.origin.End-MinWidth))
		n.win = Window{Start: start, End: d.origin.End}
	case DragResizeRight:
		end := math.Min(n.bounds.End, math.Max(t, d.origin.Start+MinWidth))
		n.win = Window{Start: d.origin.Start, End: end}
	}
}

// ReleaseOverview ends the overview drag.
func (n *Navigator) ReleaseOverview(t float64) {
	n.MoveOverview(t)
	n.drag = overviewDrag{}
}

// Dragging reports the style of the overview drag in flight.
func (n *Navigator) Dragging() DragStyle { return n.drag.style }

func (n *Navigator) result(clamped bool) error {
	if clamped {
		return apperrors.ErrOutOfBounds
	}
	return nil
}
