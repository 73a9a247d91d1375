package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	editor "beatmark/internal/modules/editor/domain"
	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	"beatmark/internal/modules/session/domain"
	sessiondto "beatmark/internal/modules/session/dto"
	sessionin "beatmark/internal/modules/session/port/in"
	sessionout "beatmark/internal/modules/session/port/out"
	"beatmark/internal/modules/session/service"
	"beatmark/internal/modules/session/usecase"
	signal "beatmark/internal/modules/signal/domain"
	"beatmark/internal/platform/clock"
	apperrors "beatmark/internal/platform/errors"
	"beatmark/internal/platform/id"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type fakeLoader struct {
	ds domain.Dataset
}

func (f fakeLoader) Load(context.Context, string) (domain.Dataset, error) {
	return f.ds, nil
}

type fakeRepo struct {
	seeds   []marker.Seed
	found   bool
	saved   []marker.Marker
	savedAt time.Time
	onSave  func()
}

func (f *fakeRepo) Load(context.Context, string) ([]marker.Seed, bool, error) {
	return f.seeds, f.found, nil
}

func (f *fakeRepo) Save(_ context.Context, _ string, markers []marker.Marker, savedAt time.Time) error {
	f.saved, f.savedAt = markers, savedAt
	if f.onSave != nil {
		f.onSave()
	}
	return nil
}

type fakeAggregator struct {
	rows []epoch.Row
}

func (f *fakeAggregator) Aggregate(_ context.Context, _ string, rows []epoch.Row) (sessionout.EpochStats, error) {
	f.rows = rows
	return sessionout.EpochStats{
		"zz-extra": {"n": 0},
		"rest":     {"n": float64(len(rows))},
	}, nil
}

type fakeSummaries struct {
	got sessionout.Summary
}

func (f *fakeSummaries) Save(_ context.Context, summary sessionout.Summary) (string, error) {
	f.got = summary
	return "notes/rec.md", nil
}

func testDataset(t *testing.T) domain.Dataset {
	t.Helper()
	times := make([]float64, 11)
	values := make([]float64, 11)
	for i := range times {
		times[i] = float64(i)
		values[i] = float64(i % 3)
	}
	primary, err := signal.NewSeries("ecg", times, values, 0)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return domain.Dataset{
		Key:     "rec",
		Name:    "Recording",
		Primary: primary,
		Events:  []epoch.Event{{Time: 0, Text: "start rest"}, {Time: 5, Text: "end rest"}},
		Markers: []marker.Seed{{Time: 1, Label: marker.LabelNormal}, {Time: 2, Label: marker.LabelNormal}, {Time: 3, Label: marker.LabelNormal}},
	}
}

func testOptions() service.Options {
	return service.Options{
		Editor: editor.Options{
			DefaultLabel: marker.LabelNormal,
			LocatedLabel: marker.LabelLocated,
			Tolerance:    editor.Tolerance{Seconds: 0.05},
		},
		InitialWidth: 4,
	}
}

func newInteractor(t *testing.T, repo *fakeRepo, agg sessionout.Aggregator, summaries sessionout.SummaryStore) sessionin.Usecase {
	t.Helper()
	return newInteractorWith(t, testOptions(), repo, agg, summaries)
}

func newInteractorWith(t *testing.T, opts service.Options, repo *fakeRepo, agg sessionout.Aggregator, summaries sessionout.SummaryStore) sessionin.Usecase {
	t.Helper()
	svc := service.NewSessionService(clock.Fixed(testNow), id.Static("sess-1"), nil, opts, editor.Callbacks{})
	return usecase.NewInteractor(svc, fakeLoader{ds: testDataset(t)}, repo, summaries, agg, clock.Fixed(testNow))
}

func TestOpenRestoresSavedMarkersUnlessReset(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{seeds: []marker.Seed{{Time: 2, Label: marker.LabelNormal}, {Time: 4, Label: marker.LabelSuspect}}, found: true}
	uc := newInteractor(t, repo, nil, nil)
	ctx := context.Background()

	out, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !out.Restored || out.Markers != 2 {
		t.Fatalf("expected 2 restored markers, got %+v", out)
	}
	if out.SessionID != "sess-1" || out.Start != 0 || out.End != 10 || out.Rate != 1 {
		t.Fatalf("unexpected session output: %+v", out)
	}
	if len(out.Epochs) != 1 || out.Epochs[0].Name != "rest" || !out.Epochs[0].Active {
		t.Fatalf("unexpected epochs: %+v", out.Epochs)
	}

	out, err = uc.Open(ctx, sessiondto.OpenInput{Path: "rec", Reset: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if out.Restored || out.Markers != 3 {
		t.Fatalf("reset should use dataset markers, got %+v", out)
	}
}

func TestOpenRestoresEmptySavedSet(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t, &fakeRepo{found: true}, nil, nil)
	out, err := uc.Open(context.Background(), sessiondto.OpenInput{Path: "rec"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out.Markers != 0 {
		t.Fatalf("an empty saved set must win over dataset markers, got %d", out.Markers)
	}
}

func TestOperationsRequireOpenDataset(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t, &fakeRepo{}, nil, nil)
	ctx := context.Background()
	if _, err := uc.Snapshot(ctx); !errors.Is(err, apperrors.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset from snapshot, got %v", err)
	}
	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "page_right"}); !errors.Is(err, apperrors.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset from dispatch, got %v", err)
	}
	if _, err := uc.Open(ctx, sessiondto.OpenInput{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty path, got %v", err)
	}
}

func TestDispatchAndPointerReportChanges(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t, &fakeRepo{}, nil, nil)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}

	set, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "page_right"})
	if err != nil {
		t.Fatalf("page right: %v", err)
	}
	if len(set.Changes) != 1 || set.Changes[0].Kind != "window" {
		t.Fatalf("expected one window change, got %+v", set)
	}
	snap, err := uc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.WindowStart != 4 || snap.WindowEnd != 8 {
		t.Fatalf("expected window [4, 8], got [%g, %g]", snap.WindowStart, snap.WindowEnd)
	}

	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "jump_start"}); err != nil {
		t.Fatalf("jump start: %v", err)
	}
	set, err = uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "jump_start"})
	if err != nil {
		t.Fatalf("jump start again: %v", err)
	}
	if len(set.Changes) != 0 || set.Note != "no change" {
		t.Fatalf("repeated jump should change nothing, got %+v", set)
	}

	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "mode", Mode: "add"}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	set, err = uc.Pointer(ctx, sessiondto.PointerInput{Phase: "down", Target: "detail", X: 3.5, UnitsPerPixel: 0.01})
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	if len(set.Changes) != 1 || set.Changes[0].Kind != "added" || set.Changes[0].NewTime != 3.5 {
		t.Fatalf("expected an added marker at 3.5, got %+v", set)
	}

	from, to := 3.0, 4.0
	markers, err := uc.Markers(ctx, sessiondto.MarkerQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("markers: %v", err)
	}
	if len(markers) != 2 || markers[1].Time != 3.5 || markers[1].Epochs[0] != "rest" {
		t.Fatalf("unexpected markers: %+v", markers)
	}

	history, err := uc.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history[0].Action != "open" || history[len(history)-1].Action != "add" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSaveClearsDirtyFlag(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{}
	uc := newInteractor(t, repo, nil, nil)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "mode", Mode: "add"}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if _, err := uc.Pointer(ctx, sessiondto.PointerInput{Phase: "down", Target: "detail", X: 2.5, UnitsPerPixel: 0.01}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, _ := uc.Snapshot(ctx)
	if !snap.Dirty {
		t.Fatalf("expected dirty session after an edit")
	}

	out, err := uc.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if out.Markers != 4 || len(repo.saved) != 4 || !repo.savedAt.Equal(testNow) {
		t.Fatalf("unexpected save: %+v repo=%d", out, len(repo.saved))
	}
	snap, _ = uc.Snapshot(ctx)
	if snap.Dirty {
		t.Fatalf("expected clean session after save")
	}
}

func TestSaveWritesOutsideSessionLock(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{}
	uc := newInteractor(t, repo, nil, nil)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "mode", Mode: "add"}); err != nil {
		t.Fatalf("mode: %v", err)
	}
	var during error
	repo.onSave = func() {
		_, during = uc.Pointer(ctx, sessiondto.PointerInput{Phase: "down", Target: "detail", X: 3.5, UnitsPerPixel: 0.01})
	}

	out, err := uc.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if during != nil {
		t.Fatalf("edit during save: %v", during)
	}
	if out.Markers != 3 || len(repo.saved) != 3 {
		t.Fatalf("save should write the markers present when it started, got %+v", out)
	}
	snap, err := uc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Dirty {
		t.Fatalf("an edit made during save must leave the session dirty")
	}
}

func TestNavigateLabelAnyConsidersEveryMarker(t *testing.T) {
	t.Parallel()
	seeds := []marker.Seed{{Time: 1, Label: marker.LabelNormal}, {Time: 7, Label: marker.LabelNormal}}
	ctx := context.Background()

	byDefault := newInteractor(t, &fakeRepo{seeds: seeds, found: true}, nil, nil)
	if _, err := byDefault.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	set, err := byDefault.Dispatch(ctx, sessiondto.CommandInput{Kind: "next_marker"})
	if err != nil {
		t.Fatalf("next marker: %v", err)
	}
	if len(set.Changes) != 0 {
		t.Fatalf("default label S should skip N markers, got %+v", set)
	}

	opts := testOptions()
	opts.NavigateLabel = service.AnyLabel
	anyLabel := newInteractorWith(t, opts, &fakeRepo{seeds: seeds, found: true}, nil, nil)
	if _, err := anyLabel.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := anyLabel.Dispatch(ctx, sessiondto.CommandInput{Kind: "next_marker"}); err != nil {
		t.Fatalf("next marker: %v", err)
	}
	snap, err := anyLabel.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.WindowStart != 5 || snap.WindowEnd != 9 {
		t.Fatalf("expected window centred on 7, got [%g, %g]", snap.WindowStart, snap.WindowEnd)
	}
}

func TestStatsNeedsAggregator(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t, &fakeRepo{}, nil, nil)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := uc.Stats(ctx, sessiondto.StatsInput{Plugin: "descriptives"}); !errors.Is(err, apperrors.ErrNoAggregator) {
		t.Fatalf("expected ErrNoAggregator, got %v", err)
	}
}

func TestStatsAndSummaryUseSelectedRows(t *testing.T) {
	t.Parallel()
	agg := &fakeAggregator{}
	summaries := &fakeSummaries{}
	uc := newInteractor(t, &fakeRepo{}, agg, summaries)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}

	stats, err := uc.Stats(ctx, sessiondto.StatsInput{Plugin: "descriptives"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(agg.rows) != 2 {
		t.Fatalf("expected 2 rows after dropping the first marker, got %d", len(agg.rows))
	}
	if len(stats.Epochs) != 2 || stats.Epochs[0].Epoch != "rest" || stats.Epochs[1].Epoch != "zz-extra" {
		t.Fatalf("stats should follow selection order, got %+v", stats.Epochs)
	}

	if _, err := uc.Dispatch(ctx, sessiondto.CommandInput{Kind: "toggle_epoch", Epoch: "rest"}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	rows, err := uc.Rows(ctx)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("deselected epoch must not produce rows, got %+v", rows)
	}

	out, err := uc.Summary(ctx, sessiondto.SummaryInput{Plugin: "descriptives"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if out.Path != "notes/rec.md" || out.Rows != 0 {
		t.Fatalf("unexpected summary output: %+v", out)
	}
	if summaries.got.Selection["rest"] || summaries.got.Plugin != "descriptives" || summaries.got.Markers != 3 {
		t.Fatalf("unexpected summary: %+v", summaries.got)
	}
}

func TestTraceFallsBackToWindow(t *testing.T) {
	t.Parallel()
	uc := newInteractor(t, &fakeRepo{}, nil, nil)
	ctx := context.Background()
	if _, err := uc.Open(ctx, sessiondto.OpenInput{Path: "rec"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	trace, err := uc.Trace(ctx, sessiondto.TraceInput{Columns: 4})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !trace.Available || len(trace.Buckets) != 4 || trace.Min != 0 || trace.Max != 2 {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	for i, band := range trace.Epochs {
		if band != "rest" {
			t.Fatalf("column %d should be in rest, got %q", i, band)
		}
	}
	secondary, err := uc.Trace(ctx, sessiondto.TraceInput{Secondary: true, Columns: 4})
	if err != nil {
		t.Fatalf("secondary trace: %v", err)
	}
	if secondary.Available {
		t.Fatalf("dataset without secondary channel must report unavailable")
	}
}
