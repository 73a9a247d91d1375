package out

import (
	"context"
	"time"

	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	"beatmark/internal/modules/session/domain"
)

type DatasetLoader interface {
	Load(ctx context.Context, path string) (domain.Dataset, error)
}

// MarkerRepository persists edited marker sets per dataset key.
type MarkerRepository interface {
	Load(ctx context.Context, datasetKey string) ([]marker.Seed, bool, error)
	Save(ctx context.Context, datasetKey string, markers []marker.Marker, savedAt time.Time) error
}

// EpochStats maps an epoch name to named statistics.
type EpochStats map[string]map[string]float64

// Aggregator is the external statistics collaborator.
type Aggregator interface {
	Aggregate(ctx context.Context, plugin string, rows []epoch.Row) (EpochStats, error)
}

type Summary struct {
	SessionID  string
	Dataset    domain.Dataset
	WrittenAt  time.Time
	Markers    int
	Epochs     []epoch.Epoch
	Selection  map[string]bool
	Spans      []epoch.Span
	Rows       []epoch.Row
	Plugin     string
	Statistics EpochStats
}

type SummaryStore interface {
	Save(ctx context.Context, summary Summary) (string, error)
}
