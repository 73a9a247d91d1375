package domain

import (
	"fmt"
	"math"
	"sort"

	apperrors "beatmark/internal/platform/errors"
)

// Label is the beat class attached to a marker.
type Label string

const (
	LabelNormal  Label = "N"
	LabelLocated Label = "L"
	LabelSuspect Label = "S"
	LabelT       Label = "T"
	LabelOne     Label = "1"
	LabelTwo     Label = "2"
)

// KnownLabels lists the classes the editor colours and cycles through.
var KnownLabels = []Label{LabelNormal, LabelLocated, LabelSuspect, LabelT, LabelOne, LabelTwo}

type Marker struct {
	ID    int64
	Time  float64
	Label Label
}

// Seed is an initial marker as produced by a detector or a saved session.
type Seed struct {
	Time  float64
	Label Label
}

type entry struct {
	marker Marker
	seq    uint64
}

// Store keeps markers ordered by time. Markers sharing a time stay in the
// order they were first inserted, including after relocation.
type Store struct {
	entries []entry
	nextID  int64
	nextSeq uint64
	version uint64
}

// NewStore inserts seeds in the given order; ids start at 1.
func NewStore(seeds []Seed) (*Store, error) {
	s := &Store{nextID: 1}
	for i, seed := range seeds {
		if _, err := s.Add(seed.Time, seed.Label); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *Store) Add(t float64, label Label) (int64, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: marker time %v", apperrors.ErrInvalidInput, t)
	}
	if s.nextID == 0 {
		s.nextID = 1
	}
	e := entry{marker: Marker{ID: s.nextID, Time: t, Label: label}, seq: s.nextSeq}
	s.nextID++
	s.nextSeq++
	s.insert(e)
	s.version++
	return e.marker.ID, nil
}

func (s *Store) Remove(id int64) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", apperrors.ErrUnknownMarker, id)
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.version++
	return nil
}

// Relocate moves marker id to t and returns its previous time.
func (s *Store) Relocate(id int64, t float64) (float64, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: marker time %v", apperrors.ErrInvalidInput, t)
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %d", apperrors.ErrUnknownMarker, id)
	}
	e := s.entries[idx]
	old := e.marker.Time
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	e.marker.Time = t
	s.insert(e)
	s.version++
	return old, nil
}

// Relabel changes the class of marker id.
func (s *Store) Relabel(id int64, label Label) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", apperrors.ErrUnknownMarker, id)
	}
	s.entries[idx].marker.Label = label
	s.version++
	return nil
}

// Query returns the markers with lo <= Time <= hi in store order.
func (s *Store) Query(lo, hi float64) []Marker {
	if hi < lo {
		return nil
	}
	from := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].marker.Time >= lo })
	to := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].marker.Time > hi })
	out := make([]Marker, 0, to-from)
	for _, e := range s.entries[from:to] {
		out = append(out, e.marker)
	}
	return out
}

func (s *Store) All() []Marker {
	out := make([]Marker, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.marker
	}
	return out
}

func (s *Store) Get(id int64) (Marker, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Marker{}, false
	}
	return s.entries[idx].marker, true
}

func (s *Store) Len() int { return len(s.entries) }

// Version increases on every mutation.
func (s *Store) Version() uint64 { return s.version }

// Times returns the times of the markers accepted by keep, ascending.
func (s *Store) Times(keep func(Marker) bool) []float64 {
	out := make([]float64, 0, len(s.entries))
	for _, e := range s.entries {
		if keep == nil || keep(e.marker) {
			out = append(out, e.marker.Time)
		}
	}
	return out
}

func (s *Store) insert(e entry) {
	at := sort.Search(len(s.entries), func(i int) bool {
		other := s.entries[i]
		if other.marker.Time != e.marker.Time {
			return other.marker.Time > e.marker.Time
		}
		return other.seq > e.seq
	})
	s.entries = append(s.entries, entry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = e
}

func (s *Store) indexOf(id int64) int {
	for i, e := range s.entries {
		if e.marker.ID == id {
			return i
		}
	}
	return -1
}

// WithLabel is a predicate for Times and navigation.
func WithLabel(label Label) func(Marker) bool {
	return func(m Marker) bool { return m.Label == label }
}
