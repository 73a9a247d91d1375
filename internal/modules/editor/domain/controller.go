package domain

import (
	"fmt"
	"math"

	marker "beatmark/internal/modules/marker/domain"
	apperrors "beatmark/internal/platform/errors"
)

// Pointer is one pointer event in data coordinates.
type Pointer struct {
	X float64
	// UnitsPerPixel converts the pixel part of the hit tolerance to seconds.
	UnitsPerPixel float64
	// Outside marks a release away from any editable view.
	Outside bool
}

// Tolerance is the hit radius around a handle. The larger of the two parts
// applies, so grabbing stays possible at every zoom level.
type Tolerance struct {
	Seconds float64
	Pixels  float64
}

func (t Tolerance) At(unitsPerPixel float64) float64 {
	return math.Max(t.Seconds, t.Pixels*math.Abs(unitsPerPixel))
}

// Peaks locates the largest sample strictly inside an interval.
type Peaks interface {
	ArgMaxStrict(lo, hi float64) (float64, bool)
}

type Callbacks struct {
	OnAdded   func(id int64, t float64)
	OnRemoved func(id int64)
	OnDragged func(id int64, oldTime, newTime float64)
}

type Options struct {
	DefaultLabel marker.Label
	LocatedLabel marker.Label
	Tolerance    Tolerance
}

// Handle is the rendered counterpart of one marker.
type Handle struct {
	ID       int64
	Time     float64
	Label    marker.Label
	Dragging bool
}

// Shading is the interval selected by a Remove or Find gesture in flight.
type Shading struct {
	Active bool
	Mode   Mode
	Lo, Hi float64
}

type gesture struct {
	active  bool
	mode    Mode
	target  int64
	origin  float64
	pending float64
	anchor  float64
	current float64
}

// Controller owns the editing mode and the pointer gesture in flight. It is
// the only writer of the marker store.
type Controller struct {
	store   *marker.Store
	peaks   Peaks
	opts    Options
	cb      Callbacks
	mode    Mode
	g       gesture
	handles map[int64]Handle
	built   uint64
}

func NewController(store *marker.Store, peaks Peaks, opts Options, cb Callbacks) *Controller {
	if opts.DefaultLabel == "" {
		opts.DefaultLabel = marker.LabelNormal
	}
	if opts.LocatedLabel == "" {
		opts.LocatedLabel = marker.LabelLocated
	}
	c := &Controller{store: store, peaks: peaks, opts: opts, cb: cb}
	c.rebuild()
	return c
}

func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches mode immediately. A gesture in flight keeps its own mode.
func (c *Controller) SetMode(m Mode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	c.mode = m
	return nil
}

// InGesture reports whether a pointer is held down.
func (c *Controller) InGesture() bool { return c.g.active }

func (c *Controller) Down(p Pointer) error {
	c.g = gesture{}
	switch c.mode {
	case ModeDrag:
		id, ok := c.HitTest(p)
		if !ok {
			return nil
		}
		h := c.handles[id]
		c.g = gesture{active: true, mode: ModeDrag, target: id, origin: h.Time, pending: h.Time}
	case ModeAdd:
		id, err := c.store.Add(p.X, c.opts.DefaultLabel)
		if err != nil {
			return err
		}
		c.rebuild()
		if c.cb.OnAdded != nil {
			c.cb.OnAdded(id, p.X)
		}
	case ModeRemove, ModeFind:
		c.g = gesture{active: true, mode: c.mode, anchor: p.X, current: p.X}
	}
	return nil
}

func (c *Controller) Move(p Pointer) {
	if !c.g.active {
		return
	}
	if c.g.mode == ModeDrag {
		c.g.pending = p.X
		return
	}
	c.g.current = p.X
}

// Up completes the gesture under the mode it started with.
func (c *Controller) Up(p Pointer) error {
	if !c.g.active {
		return nil
	}
	if p.Outside {
		c.Cancel()
		return nil
	}
	g := c.g
	c.g = gesture{}
	switch g.mode {
	case ModeDrag:
		return c.commitDrag(g.target, p.X)
	case ModeRemove:
		return c.removeBetween(g.anchor, p.X)
	case ModeFind:
		return c.locateBetween(g.anchor, p.X)
	}
	return nil
}

// Cancel drops the gesture in flight without touching the store.
func (c *Controller) Cancel() {
	c.g = gesture{}
}

func (c *Controller) commitDrag(id int64, to float64) error {
	h, ok := c.handleFor(id)
	if !ok {
		return fmt.Errorf("%w: %d", apperrors.ErrUnknownMarker, id)
	}
	if to == h.Time {
		return nil
	}
	old, err := c.store.Relocate(id, to)
	if err != nil {
		return err
	}
	c.rebuild()
	if c.cb.OnDragged != nil {
		c.cb.OnDragged(id, old, to)
	}
	return nil
}

func (c *Controller) removeBetween(a, b float64) error {
	lo, hi := math.Min(a, b), math.Max(a, b)
	if !(hi > lo) {
		return fmt.Errorf("%w: remove [%g, %g]", apperrors.ErrInvalidRange, lo, hi)
	}
	doomed := c.store.Query(lo, hi)
	for _, m := range doomed {
		if err := c.store.Remove(m.ID); err != nil {
			return err
		}
	}
	c.rebuild()
	if c.cb.OnRemoved != nil {
		for _, m := range doomed {
			c.cb.OnRemoved(m.ID)
		}
	}
	return nil
}

func (c *Controller) locateBetween(a, b float64) error {
	lo, hi := math.Min(a, b), math.Max(a, b)
	if !(hi > lo) {
		return fmt.Errorf("%w: find [%g, %g]", apperrors.ErrInvalidRange, lo, hi)
	}
	if c.peaks == nil {
		return fmt.Errorf("%w: no signal to search", apperrors.ErrInvalidRange)
	}
	t, ok := c.peaks.ArgMaxStrict(lo, hi)
	if !ok {
		return fmt.Errorf("%w: no sample inside (%g, %g)", apperrors.ErrInvalidRange, lo, hi)
	}
	id, err := c.store.Add(t, c.opts.LocatedLabel)
	if err != nil {
		return err
	}
	c.rebuild()
	if c.cb.OnAdded != nil {
		c.cb.OnAdded(id, t)
	}
	return nil
}

// Relabel sets the class of the marker under p.
func (c *Controller) Relabel(p Pointer, label marker.Label) (int64, error) {
	id, ok := c.HitTest(p)
	if !ok {
		return 0, fmt.Errorf("%w: no marker near %g", apperrors.ErrUnknownMarker, p.X)
	}
	if err := c.store.Relabel(id, label); err != nil {
		return 0, err
	}
	c.rebuild()
	return id, nil
}

// HitTest returns the marker nearest to p within tolerance. Equal distances
// go to the earlier marker.
func (c *Controller) HitTest(p Pointer) (int64, bool) {
	c.refresh()
	tol := c.opts.Tolerance.At(p.UnitsPerPixel)
	best, bestDist := int64(0), math.Inf(1)
	for _, m := range c.store.Query(p.X-tol, p.X+tol) {
		h, ok := c.handles[m.ID]
		if !ok {
			continue
		}
		if d := math.Abs(h.Time - p.X); d < bestDist {
			best, bestDist = m.ID, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// Handles returns every handle in store order. The dragged handle reports its
// pending position.
func (c *Controller) Handles() []Handle {
	c.refresh()
	all := c.store.All()
	out := make([]Handle, 0, len(all))
	for _, m := range all {
		h := c.handles[m.ID]
		if c.g.active && c.g.mode == ModeDrag && h.ID == c.g.target {
			h.Time = c.g.pending
			h.Dragging = true
		}
		out = append(out, h)
	}
	return out
}

func (c *Controller) handleFor(id int64) (Handle, bool) {
	c.refresh()
	h, ok := c.handles[id]
	return h, ok
}

// Shading describes the interval of a Remove or Find gesture in flight.
func (c *Controller) Shading() Shading {
	if !c.g.active || !c.g.mode.Interval() {
		return Shading{}
	}
	return Shading{
		Active: true,
		Mode:   c.g.mode,
		Lo:     math.Min(c.g.anchor, c.g.current),
		Hi:     math.Max(c.g.anchor, c.g.current),
	}
}

func (c *Controller) refresh() {
	if c.handles == nil || c.built != c.store.Version() {
		c.rebuild()
	}
}

func (c *Controller) rebuild() {
	all := c.store.All()
	c.handles = make(map[int64]Handle, len(all))
	for _, m := range all {
		c.handles[m.ID] = Handle{ID: m.ID, Time: m.Time, Label: m.Label}
	}
	c.built = c.store.Version()
}
