package domain_test

import (
	"errors"
	"reflect"
	"testing"

	"beatmark/internal/modules/epoch/domain"
	apperrors "beatmark/internal/platform/errors"
)

func TestSegmentOverlappingEpochs(t *testing.T) {
	t.Parallel()
	events := []domain.Event{
		{Time: 1, Text: "start A"},
		{Time: 3, Text: "start B"},
		{Time: 5, Text: "end A"},
		{Time: 9, Text: "end B"},
	}
	epochs, issues := domain.Segment(events, 20)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	cases := []struct {
		at   float64
		want []string
	}{
		{at: 4, want: []string{"A", "B"}},
		{at: 6, want: []string{"B"}},
		{at: 10, want: []string{domain.None}},
	}
	for _, tc := range cases {
		if got := domain.Membership(epochs, tc.at); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("membership at %v: want %v got %v", tc.at, tc.want, got)
		}
	}
}

func TestSegmentSharedBoundaryIsInclusive(t *testing.T) {
	t.Parallel()
	events := []domain.Event{
		{Time: 0, Text: "start Rest"},
		{Time: 10, Text: "end Rest"},
		{Time: 10, Text: "start Task"},
		{Time: 20, Text: "end Task"},
	}
	epochs, _ := domain.Segment(events, 30)
	if got := domain.Membership(epochs, 10); !reflect.DeepEqual(got, []string{"Rest", "Task"}) {
		t.Fatalf("expected Rest and Task at 10, got %v", got)
	}
}

func TestSegmentFallbacks(t *testing.T) {
	t.Parallel()
	events := []domain.Event{
		{Time: 2, Text: "START  Baseline "},
		{Time: 6, Text: "Start Stress"},
		{Time: 8, Text: "note: subject moved"},
		{Time: 9, Text: "End stress"},
	}
	epochs, issues := domain.Segment(events, 12)
	want := []domain.Epoch{
		{Name: "Baseline", Start: 2, End: 6},
		{Name: "Stress", Start: 6, End: 12},
	}
	if !reflect.DeepEqual(epochs, want) {
		t.Fatalf("unexpected epochs: %+v", epochs)
	}
	if len(issues) != 2 {
		t.Fatalf("expected two unterminated issues, got %v", issues)
	}
	for _, issue := range issues {
		if !errors.Is(issue, apperrors.ErrUnterminatedEpoch) {
			t.Fatalf("expected unterminated epoch, got %v", issue)
		}
	}
}

func TestSegmentDropsDegenerateEpoch(t *testing.T) {
	t.Parallel()
	events := []domain.Event{
		{Time: 5, Text: "start Blink"},
		{Time: 5, Text: "end Blink"},
		{Time: 7, Text: "start Late"},
	}
	epochs, issues := domain.Segment(events, 7)
	if len(epochs) != 0 {
		t.Fatalf("expected no epochs, got %+v", epochs)
	}
	dropped := 0
	for _, issue := range issues {
		if errors.Is(issue, apperrors.ErrInvalidRange) {
			dropped++
		}
	}
	if dropped != 2 {
		t.Fatalf("expected two dropped epochs, got %v", issues)
	}
}

func TestSegmentSortsOutOfOrderLog(t *testing.T) {
	t.Parallel()
	events := []domain.Event{
		{Time: 8, Text: "end A"},
		{Time: 1, Text: "start A"},
	}
	epochs, _ := domain.Segment(events, 10)
	if len(epochs) != 1 || epochs[0].End != 8 {
		t.Fatalf("unexpected epochs: %+v", epochs)
	}
}

func TestNamesAndMembershipDeduplicate(t *testing.T) {
	t.Parallel()
	epochs := []domain.Epoch{
		{Name: "Task", Start: 0, End: 10},
		{Name: "Rest", Start: 2, End: 4},
		{Name: "Task", Start: 3, End: 6},
	}
	if got := domain.Names(epochs); !reflect.DeepEqual(got, []string{"Task", "Rest"}) {
		t.Fatalf("unexpected names: %v", got)
	}
	if got := domain.Membership(epochs, 3.5); !reflect.DeepEqual(got, []string{"Task", "Rest"}) {
		t.Fatalf("unexpected membership: %v", got)
	}
}
