package domain_test

import (
	"errors"
	"testing"

	"beatmark/internal/modules/signal/domain"
	apperrors "beatmark/internal/platform/errors"
)

func mustSeries(t *testing.T, times, values []float64) domain.Series {
	t.Helper()
	s, err := domain.NewSeries("ecg", times, values, 0)
	if err != nil {
		t.Fatalf("new series: %v", err)
	}
	return s
}

func TestNewSeriesValidatesAndDerivesRate(t *testing.T) {
	t.Parallel()
	s := mustSeries(t, []float64{0, 0.002, 0.004, 0.006}, []float64{1, 2, 3, 4})
	if s.Rate != 500 {
		t.Fatalf("expected 500 Hz, got %v", s.Rate)
	}
	declared, err := domain.NewSeries("ppg", []float64{0, 1}, []float64{0, 0}, 128)
	if err != nil || declared.Rate != 128 {
		t.Fatalf("declared rate lost: %v %v", declared.Rate, err)
	}
	bad := [][2][]float64{
		{nil, nil},
		{{0, 1}, {0}},
		{{0, 2, 1}, {0, 0, 0}},
	}
	for _, tc := range bad {
		if _, err := domain.NewSeries("x", tc[0], tc[1], 0); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %v, got %v", tc, err)
		}
	}
}

func TestArgMaxStrictExcludesBoundsAndPrefersEarliest(t *testing.T) {
	t.Parallel()
	s := mustSeries(t,
		[]float64{0, 1, 2, 3, 4, 5, 6},
		[]float64{9, 1, 5, 3, 5, 2, 9},
	)
	got, ok := s.ArgMaxStrict(0, 6)
	if !ok || got != 2 {
		t.Fatalf("expected t=2, got %v ok=%t", got, ok)
	}
	if _, ok := s.ArgMaxStrict(2, 3); ok {
		t.Fatalf("no sample lies strictly inside (2,3)")
	}
	if got, ok := s.ArgMaxStrict(-1, 0.5); !ok || got != 0 {
		t.Fatalf("expected t=0, got %v ok=%t", got, ok)
	}
}

func TestEnvelopeAndRange(t *testing.T) {
	t.Parallel()
	s := mustSeries(t, []float64{0, 1, 2, 3}, []float64{1, -1, 4, 2})
	env := s.Envelope(0, 4, 2)
	if env[0].Empty || env[0].Min != -1 || env[0].Max != 1 {
		t.Fatalf("unexpected first bucket: %+v", env[0])
	}
	if env[1].Min != 2 || env[1].Max != 4 {
		t.Fatalf("unexpected second bucket: %+v", env[1])
	}
	mn, mx, ok := s.Range(1, 2)
	if !ok || mn != -1 || mx != 4 {
		t.Fatalf("unexpected range %v %v %t", mn, mx, ok)
	}
	if _, _, ok := s.Range(10, 20); ok {
		t.Fatalf("expected empty range")
	}
	if s.Nearest(2.4) != 4 || s.Nearest(2.6) != 2 || s.Nearest(99) != 2 {
		t.Fatalf("unexpected nearest values")
	}
}
