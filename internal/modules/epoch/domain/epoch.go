package domain

import (
	"fmt"
	"sort"
	"strings"

	apperrors "beatmark/internal/platform/errors"
)

// None names the time outside every epoch.
const None = "None"

const (
	startPrefix = "start "
	endPrefix   = "end "
)

// Event is one line of the recording session's event log.
type Event struct {
	Time float64
	Text string
}

type Epoch struct {
	Name  string
	Start float64
	End   float64
}

// Contains is inclusive at both ends.
func (e Epoch) Contains(t float64) bool {
	return t >= e.Start && t <= e.End
}

// Issue records a start event that needed a fallback or was dropped.
type Issue struct {
	Name  string
	Start float64
	End   float64
	Err   error
}

func (i Issue) Error() string {
	return fmt.Sprintf("epoch %q at %g: %v", i.Name, i.Start, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

type parsed struct {
	time  float64
	name  string
	start bool
}

func parse(ev Event) (parsed, bool) {
	lower := strings.ToLower(ev.Text)
	switch {
	case strings.HasPrefix(lower, startPrefix):
		name := strings.TrimSpace(ev.Text[len(startPrefix):])
		return parsed{time: ev.Time, name: name, start: true}, name != ""
	case strings.HasPrefix(lower, endPrefix):
		name := strings.TrimSpace(ev.Text[len(endPrefix):])
		return parsed{time: ev.Time, name: name}, name != ""
	default:
		return parsed{}, false
	}
}

// Segment turns an event log into epochs in start-event order. A start event
// closes at the first later end event with the same name, otherwise at the next
// start event of any name, otherwise at datasetEnd. Epochs that would not end
// after they start are dropped and reported.
func Segment(events []Event, datasetEnd float64) ([]Epoch, []Issue) {
	log := make([]parsed, 0, len(events))
	ordered := append([]Event(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })
	for _, ev := range ordered {
		if p, ok := parse(ev); ok {
			log = append(log, p)
		}
	}

	var epochs []Epoch
	var issues []Issue
	for i, ev := range log {
		if !ev.start {
			continue
		}
		end, found := closingEnd(log, i)
		if !found {
			end = datasetEnd
			if next, ok := nextStart(log, i); ok {
				end = next
			}
			issues = append(issues, Issue{Name: ev.name, Start: ev.time, End: end, Err: apperrors.ErrUnterminatedEpoch})
		}
		if end <= ev.time {
			issues = append(issues, Issue{Name: ev.name, Start: ev.time, End: end, Err: apperrors.ErrInvalidRange})
			continue
		}
		epochs = append(epochs, Epoch{Name: ev.name, Start: ev.time, End: end})
	}
	return epochs, issues
}

func closingEnd(log []parsed, i int) (float64, bool) {
	for _, ev := range log[i+1:] {
		if !ev.start && ev.name == log[i].name {
			return ev.time, true
		}
	}
	return 0, false
}

func nextStart(log []parsed, i int) (float64, bool) {
	for _, ev := range log[i+1:] {
		if ev.start {
			return ev.time, true
		}
	}
	return 0, false
}

// Names lists distinct epoch names in discovery order.
func Names(epochs []Epoch) []string {
	seen := make(map[string]struct{}, len(epochs))
	out := make([]string, 0, len(epochs))
	for _, e := range epochs {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e.Name)
	}
	return out
}

// Membership returns the names of the epochs covering t, or [None].
func Membership(epochs []Epoch, t float64) []string {
	var out []string
	for _, e := range epochs {
		if !e.Contains(t) || containsName(out, e.Name) {
			continue
		}
		out = append(out, e.Name)
	}
	if len(out) == 0 {
		return []string{None}
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
