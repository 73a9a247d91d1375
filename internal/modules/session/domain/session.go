package domain

import (
	"fmt"
	"time"

	editor "beatmark/internal/modules/editor/domain"
	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	signal "beatmark/internal/modules/signal/domain"
	view "beatmark/internal/modules/view/domain"
	apperrors "beatmark/internal/platform/errors"
)

const SchemaVersion = 1

// Dataset is everything a loader hands over when a recording is opened.
// Secondary is nil when the recording has a single channel.
type Dataset struct {
	Key       string
	Name      string
	Path      string
	Primary   signal.Series
	Secondary *signal.Series
	Events    []epoch.Event
	Markers   []marker.Seed
}

func (d Dataset) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("%w: dataset key is required", apperrors.ErrInvalidInput)
	}
	if d.Primary.Len() == 0 {
		return fmt.Errorf("%w: dataset %q has no primary samples", apperrors.ErrInvalidInput, d.Key)
	}
	if d.Primary.End() <= d.Primary.Start() {
		return fmt.Errorf("%w: dataset %q spans no time", apperrors.ErrInvalidInput, d.Key)
	}
	return nil
}

// HistoryEntry is one committed action. History is an audit trail only.
type HistoryEntry struct {
	Action string
	At     time.Time
	Params map[string]any
}

// Session is the single editing session owned by the composition root.
type Session struct {
	ID        string
	OpenedAt  time.Time
	Dataset   Dataset
	Store     *marker.Store
	Epochs    []epoch.Epoch
	Samples   epoch.Index
	Selection *epoch.Selection
	View      *view.Navigator
	Editor    *editor.Controller
	History   []HistoryEntry
	// Saved is the store version last written to the marker repository.
	Saved uint64
}

func (s *Session) Dirty() bool {
	return s.Store.Version() != s.Saved
}

// Tagged returns every marker with its epoch membership, in store order.
func (s *Session) Tagged() []epoch.Tagged {
	all := s.Store.All()
	tagged := make([]epoch.Tagged, len(all))
	for i, m := range all {
		tagged[i] = epoch.Tagged{MarkerID: m.ID, Time: m.Time, Label: string(m.Label)}
	}
	return epoch.Tag(s.Epochs, tagged)
}

// Rows is the aggregation input for the current selection.
func (s *Session) Rows() []epoch.Row {
	return epoch.Explode(s.Tagged(), s.Selection)
}
