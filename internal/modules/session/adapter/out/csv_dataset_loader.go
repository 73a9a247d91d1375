package out

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	"beatmark/internal/modules/session/domain"
	sessionout "beatmark/internal/modules/session/port/out"
	signal "beatmark/internal/modules/signal/domain"
	apperrors "beatmark/internal/platform/errors"
	"beatmark/internal/platform/slug"
)

const (
	PrimaryFile   = "primary.csv"
	SecondaryFile = "secondary.csv"
	EventsFile    = "events.csv"
	MarkersFile   = "markers.csv"
)

// CSVDatasetLoader reads a recording directory. A plain file is read as the
// primary channel with nothing else.
type CSVDatasetLoader struct{}

func NewCSVDatasetLoader() sessionout.DatasetLoader {
	return CSVDatasetLoader{}
}

func (CSVDatasetLoader) Load(ctx context.Context, path string) (domain.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Dataset{}, fmt.Errorf("%w: dataset %s", apperrors.ErrNotFound, path)
		}
		return domain.Dataset{}, fmt.Errorf("stat dataset: %w", err)
	}
	ds := domain.Dataset{
		Key:  slug.FromPath(path),
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
	}
	if !info.IsDir() {
		ds.Primary, err = readSeries(path, "primary")
		if err != nil {
			return domain.Dataset{}, err
		}
		return ds, nil
	}

	if ds.Primary, err = readSeries(filepath.Join(path, PrimaryFile), "primary"); err != nil {
		return domain.Dataset{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}
	secondary, err := readSeries(filepath.Join(path, SecondaryFile), "secondary")
	switch {
	case err == nil:
		ds.Secondary = &secondary
	case !errors.Is(err, apperrors.ErrNotFound):
		return domain.Dataset{}, err
	}
	if ds.Events, err = readEvents(filepath.Join(path, EventsFile)); err != nil {
		return domain.Dataset{}, err
	}
	if ds.Markers, err = readMarkers(filepath.Join(path, MarkersFile)); err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}

func readSeries(path, name string) (signal.Series, error) {
	var times, values []float64
	err := readRecords(path, func(line int, rec []string) error {
		t, err := parseFloat(path, line, rec, 0)
		if err != nil {
			return err
		}
		v, err := parseFloat(path, line, rec, 1)
		if err != nil {
			return err
		}
		times = append(times, t)
		values = append(values, v)
		return nil
	})
	if err != nil {
		return signal.Series{}, err
	}
	series, err := signal.NewSeries(name, times, values, 0)
	if err != nil {
		return signal.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

func readEvents(path string) ([]epoch.Event, error) {
	var events []epoch.Event
	err := readRecords(path, func(line int, rec []string) error {
		t, err := parseFloat(path, line, rec, 0)
		if err != nil {
			return err
		}
		if len(rec) < 2 {
			return fmt.Errorf("%w: %s:%d missing event text", apperrors.ErrInvalidInput, path, line)
		}
		events = append(events, epoch.Event{Time: t, Text: rec[1]})
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return events, err
}

func readMarkers(path string) ([]marker.Seed, error) {
	var seeds []marker.Seed
	err := readRecords(path, func(line int, rec []string) error {
		t, err := parseFloat(path, line, rec, 0)
		if err != nil {
			return err
		}
		label := marker.LabelNormal
		if len(rec) > 1 && strings.TrimSpace(rec[1]) != "" {
			label = marker.Label(strings.TrimSpace(rec[1]))
		}
		seeds = append(seeds, marker.Seed{Time: t, Label: label})
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return seeds, err
}

// readRecords streams rows to fn, skipping a header row whose first field is
// not a number.
func readRecords(path string, fn func(line int, rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'
	for first := true; ; first = false {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidInput, path, err)
		}
		line, _ := r.FieldPos(0)
		if first && len(rec) > 0 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64); err != nil {
				continue
			}
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

func parseFloat(path string, line int, rec []string, col int) (float64, error) {
	if col >= len(rec) {
		return 0, fmt.Errorf("%w: %s:%d expected %d columns", apperrors.ErrInvalidInput, path, line, col+1)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s:%d column %d: %v", apperrors.ErrInvalidInput, path, line, col+1, err)
	}
	return v, nil
}
