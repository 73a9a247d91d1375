package domain

import (
	"fmt"

	apperrors "beatmark/internal/platform/errors"
)

// Selection holds the visibility flag of every epoch name plus None.
// Flags default to true and only change through Toggle or Set.
type Selection struct {
	order  []string
	active map[string]bool
}

func NewSelection(names []string) *Selection {
	s := &Selection{active: make(map[string]bool, len(names)+1)}
	for _, name := range append(append([]string(nil), names...), None) {
		if _, ok := s.active[name]; ok {
			continue
		}
		s.order = append(s.order, name)
		s.active[name] = true
	}
	return s
}

// Toggle flips name and returns the new flag.
func (s *Selection) Toggle(name string) (bool, error) {
	v, ok := s.active[name]
	if !ok {
		return false, fmt.Errorf("%w: epoch %q", apperrors.ErrNotFound, name)
	}
	s.active[name] = !v
	return !v, nil
}

func (s *Selection) Set(name string, on bool) error {
	if _, ok := s.active[name]; !ok {
		return fmt.Errorf("%w: epoch %q", apperrors.ErrNotFound, name)
	}
	s.active[name] = on
	return nil
}

func (s *Selection) Active(name string) bool {
	return s.active[name]
}

// Names returns every selectable name, None last.
func (s *Selection) Names() []string {
	return append([]string(nil), s.order...)
}

// Flags snapshots the selection as a map.
func (s *Selection) Flags() map[string]bool {
	out := make(map[string]bool, len(s.active))
	for k, v := range s.active {
		out[k] = v
	}
	return out
}

// AnyActive reports whether at least one of names is active.
func (s *Selection) AnyActive(names []string) bool {
	for _, n := range names {
		if s.active[n] {
			return true
		}
	}
	return false
}
