package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	"beatmark/internal/modules/session/domain"
	sessiondto "beatmark/internal/modules/session/dto"
	sessionin "beatmark/internal/modules/session/port/in"
	sessionout "beatmark/internal/modules/session/port/out"
	"beatmark/internal/modules/session/service"
	"beatmark/internal/platform/clock"
	apperrors "beatmark/internal/platform/errors"
)

type Interactor struct {
	svc        *service.SessionService
	loader     sessionout.DatasetLoader
	repo       sessionout.MarkerRepository
	summaries  sessionout.SummaryStore
	aggregator sessionout.Aggregator
	clock      clock.Clock
}

func NewInteractor(
	svc *service.SessionService,
	loader sessionout.DatasetLoader,
	repo sessionout.MarkerRepository,
	summaries sessionout.SummaryStore,
	aggregator sessionout.Aggregator,
	clk clock.Clock,
) sessionin.Usecase {
	return &Interactor{svc: svc, loader: loader, repo: repo, summaries: summaries, aggregator: aggregator, clock: clk}
}

func (i *Interactor) Open(ctx context.Context, input sessiondto.OpenInput) (sessiondto.SessionOutput, error) {
	if input.Path == "" {
		return sessiondto.SessionOutput{}, fmt.Errorf("%w: dataset path is required", apperrors.ErrInvalidInput)
	}
	ds, err := i.loader.Load(ctx, input.Path)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}

	var seeds []marker.Seed
	restored := false
	if i.repo != nil && !input.Reset {
		saved, ok, err := i.repo.Load(ctx, ds.Key)
		if err != nil {
			return sessiondto.SessionOutput{}, err
		}
		if ok {
			seeds, restored = saved, true
			if seeds == nil {
				seeds = []marker.Seed{}
			}
		}
	}

	sess, err := i.svc.Open(ds, seeds)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	out := sessiondto.SessionOutput{
		SessionID:    sess.ID,
		DatasetKey:   ds.Key,
		DatasetName:  ds.Name,
		Start:        ds.Primary.Start(),
		End:          ds.Primary.End(),
		Rate:         ds.Primary.Rate,
		HasSecondary: ds.Secondary != nil,
		Markers:      sess.Store.Len(),
		Restored:     restored,
	}
	out.Epochs = epochOutputs(sess)
	return out, nil
}

func (i *Interactor) Dispatch(_ context.Context, input sessiondto.CommandInput) (sessiondto.ChangeSet, error) {
	changes, note, err := i.svc.Dispatch(domain.Command{
		Kind:          domain.CommandKind(input.Kind),
		Mode:          input.Mode,
		Factor:        input.Factor,
		Label:         input.Label,
		Epoch:         input.Epoch,
		Active:        input.Active,
		Start:         input.Start,
		End:           input.End,
		X:             input.X,
		UnitsPerPixel: input.UnitsPerPixel,
	})
	if err != nil {
		return sessiondto.ChangeSet{}, err
	}
	return changeSet(changes, note), nil
}

func (i *Interactor) Pointer(_ context.Context, input sessiondto.PointerInput) (sessiondto.ChangeSet, error) {
	changes, note, err := i.svc.Pointer(domain.PointerEvent{
		Phase:         domain.PointerPhase(input.Phase),
		Target:        domain.PointerTarget(input.Target),
		X:             input.X,
		UnitsPerPixel: input.UnitsPerPixel,
		Outside:       input.Outside,
	})
	if err != nil {
		return sessiondto.ChangeSet{}, err
	}
	return changeSet(changes, note), nil
}

func (i *Interactor) Snapshot(_ context.Context) (sessiondto.SnapshotOutput, error) {
	var out sessiondto.SnapshotOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		win, bounds := sess.View.Window(), sess.View.Bounds()
		handles := sess.Editor.Handles()
		shading := sess.Editor.Shading()
		out = sessiondto.SnapshotOutput{
			SessionID:   sess.ID,
			DatasetName: sess.Dataset.Name,
			Mode:        sess.Editor.Mode().String(),
			WindowStart: win.Start,
			WindowEnd:   win.End,
			BoundsStart: bounds.Start,
			BoundsEnd:   bounds.End,
			Handles:     make([]sessiondto.HandleOutput, 0, len(handles)),
			Shading: sessiondto.ShadingOutput{
				Active: shading.Active,
				Mode:   shading.Mode.String(),
				Lo:     shading.Lo,
				Hi:     shading.Hi,
			},
			Overview: sess.View.Dragging().String(),
			Markers:  sess.Store.Len(),
			Dirty:    sess.Dirty(),
		}
		for _, h := range handles {
			if !win.Contains(h.Time) && !h.Dragging {
				continue
			}
			out.Handles = append(out.Handles, sessiondto.HandleOutput{ID: h.ID, Time: h.Time, Label: string(h.Label), Dragging: h.Dragging})
		}
		return nil
	})
	return out, err
}

func (i *Interactor) Trace(_ context.Context, input sessiondto.TraceInput) (sessiondto.TraceOutput, error) {
	if input.Columns <= 0 {
		return sessiondto.TraceOutput{}, fmt.Errorf("%w: columns must be positive", apperrors.ErrInvalidInput)
	}
	var out sessiondto.TraceOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		series, ok := service.Channel(sess, input.Secondary)
		if !ok {
			return nil
		}
		from, to := input.From, input.To
		if !(to > from) {
			win := sess.View.Window()
			from, to = win.Start, win.End
		}
		out.Available = true
		out.Min, out.Max, _ = series.Range(from, to)
		for _, b := range series.Envelope(from, to, input.Columns) {
			out.Buckets = append(out.Buckets, sessiondto.BucketOutput{Min: b.Min, Max: b.Max, Empty: b.Empty})
		}
		out.Epochs = service.Bands(sess, from, to, input.Columns)
		return nil
	})
	return out, err
}

func (i *Interactor) Markers(_ context.Context, query sessiondto.MarkerQuery) ([]sessiondto.MarkerOutput, error) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if query.From != nil {
		lo = *query.From
	}
	if query.To != nil {
		hi = *query.To
	}
	var out []sessiondto.MarkerOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		for _, m := range sess.Store.Query(lo, hi) {
			out = append(out, sessiondto.MarkerOutput{
				ID:     m.ID,
				Time:   m.Time,
				Label:  string(m.Label),
				Epochs: epoch.Membership(sess.Epochs, m.Time),
			})
		}
		return nil
	})
	return out, err
}

func (i *Interactor) Epochs(_ context.Context) ([]sessiondto.EpochOutput, error) {
	var out []sessiondto.EpochOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		out = epochOutputs(sess)
		return nil
	})
	return out, err
}

func (i *Interactor) Selection(_ context.Context) ([]sessiondto.SelectionOutput, error) {
	var out []sessiondto.SelectionOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		for _, name := range sess.Selection.Names() {
			out = append(out, sessiondto.SelectionOutput{Name: name, Active: sess.Selection.Active(name)})
		}
		return nil
	})
	return out, err
}

func (i *Interactor) Rows(_ context.Context) ([]sessiondto.RowOutput, error) {
	var rows []epoch.Row
	err := i.svc.Do(func(sess *domain.Session) error {
		rows = sess.Rows()
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.RowOutput, 0, len(rows))
	for _, r := range rows {
		out = append(out, sessiondto.RowOutput{MarkerID: r.MarkerID, Time: r.Time, Label: r.Label, Epoch: r.Epoch, IBI: r.IBI})
	}
	return out, nil
}

func (i *Interactor) Spans(_ context.Context) ([]sessiondto.SpanOutput, error) {
	var spans []epoch.Span
	err := i.svc.Do(func(sess *domain.Session) error {
		spans = epoch.Spans(sess.Rows())
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.SpanOutput, 0, len(spans))
	for _, sp := range spans {
		out = append(out, sessiondto.SpanOutput{Name: sp.Name, Start: sp.Start, End: sp.End, Count: sp.Count})
	}
	return out, nil
}

func (i *Interactor) History(_ context.Context) ([]sessiondto.HistoryOutput, error) {
	var out []sessiondto.HistoryOutput
	err := i.svc.Do(func(sess *domain.Session) error {
		for _, h := range sess.History {
			out = append(out, sessiondto.HistoryOutput{Action: h.Action, At: h.At, Params: h.Params})
		}
		return nil
	})
	return out, err
}

func (i *Interactor) Save(ctx context.Context) (sessiondto.SaveOutput, error) {
	if i.repo == nil {
		return sessiondto.SaveOutput{}, fmt.Errorf("marker repository is not configured")
	}
	var (
		saved   *domain.Session
		key     string
		markers []marker.Marker
		version uint64
	)
	if err := i.svc.Do(func(sess *domain.Session) error {
		saved, key = sess, sess.Dataset.Key
		markers, version = sess.Store.All(), sess.Store.Version()
		return nil
	}); err != nil {
		return sessiondto.SaveOutput{}, err
	}

	now := i.clock.Now()
	if err := i.repo.Save(ctx, key, markers, now); err != nil {
		return sessiondto.SaveOutput{}, fmt.Errorf("save markers: %w", err)
	}
	err := i.svc.Do(func(sess *domain.Session) error {
		if sess == saved {
			i.svc.MarkSaved(sess, version, len(markers))
		}
		return nil
	})
	return sessiondto.SaveOutput{DatasetKey: key, Markers: len(markers), SavedAt: now}, err
}

func (i *Interactor) Stats(ctx context.Context, input sessiondto.StatsInput) (sessiondto.StatsOutput, error) {
	stats, order, err := i.aggregate(ctx, input.Plugin)
	if err != nil {
		return sessiondto.StatsOutput{}, err
	}
	out := sessiondto.StatsOutput{Plugin: input.Plugin}
	for _, name := range orderedKeys(stats, order) {
		out.Epochs = append(out.Epochs, sessiondto.EpochStatsOutput{Epoch: name, Values: stats[name]})
	}
	return out, nil
}

func (i *Interactor) aggregate(ctx context.Context, plugin string) (sessionout.EpochStats, []string, error) {
	if i.aggregator == nil {
		return nil, nil, apperrors.ErrNoAggregator
	}
	if plugin == "" {
		return nil, nil, fmt.Errorf("%w: plugin name is required", apperrors.ErrInvalidInput)
	}
	var rows []epoch.Row
	var order []string
	err := i.svc.Do(func(sess *domain.Session) error {
		rows = sess.Rows()
		order = sess.Selection.Names()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	stats, err := i.aggregator.Aggregate(ctx, plugin, rows)
	if err != nil {
		return nil, nil, err
	}
	return stats, order, nil
}

func (i *Interactor) Summary(ctx context.Context, input sessiondto.SummaryInput) (sessiondto.SummaryOutput, error) {
	if i.summaries == nil {
		return sessiondto.SummaryOutput{}, fmt.Errorf("summary store is not configured")
	}
	var summary sessionout.Summary
	err := i.svc.Do(func(sess *domain.Session) error {
		rows := sess.Rows()
		summary = sessionout.Summary{
			SessionID: sess.ID,
			Dataset:   sess.Dataset,
			WrittenAt: i.clock.Now(),
			Markers:   sess.Store.Len(),
			Epochs:    append([]epoch.Epoch(nil), sess.Epochs...),
			Selection: sess.Selection.Flags(),
			Spans:     epoch.Spans(rows),
			Rows:      rows,
		}
		return nil
	})
	if err != nil {
		return sessiondto.SummaryOutput{}, err
	}
	if input.Plugin != "" {
		stats, _, err := i.aggregate(ctx, input.Plugin)
		if err != nil {
			return sessiondto.SummaryOutput{}, err
		}
		summary.Plugin, summary.Statistics = input.Plugin, stats
	}
	path, err := i.summaries.Save(ctx, summary)
	if err != nil {
		return sessiondto.SummaryOutput{}, err
	}
	return sessiondto.SummaryOutput{Path: path, Rows: len(summary.Rows), Spans: len(summary.Spans)}, nil
}

func epochOutputs(sess *domain.Session) []sessiondto.EpochOutput {
	out := make([]sessiondto.EpochOutput, 0, len(sess.Epochs))
	for _, e := range sess.Epochs {
		out = append(out, sessiondto.EpochOutput{Name: e.Name, Start: e.Start, End: e.End, Active: sess.Selection.Active(e.Name)})
	}
	return out
}

func changeSet(changes []domain.Change, note string) sessiondto.ChangeSet {
	out := sessiondto.ChangeSet{Note: note}
	for _, c := range changes {
		out.Changes = append(out.Changes, sessiondto.ChangeOutput{
			Kind:     string(c.Kind),
			MarkerID: c.MarkerID,
			OldTime:  c.OldTime,
			NewTime:  c.NewTime,
			Detail:   c.Detail,
		})
	}
	return out
}

// orderedKeys lists stats keys in selection order, then any others sorted.
func orderedKeys(stats sessionout.EpochStats, order []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range order {
		if _, ok := stats[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range stats {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
