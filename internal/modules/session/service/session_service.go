package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	editor "beatmark/internal/modules/editor/domain"
	epoch "beatmark/internal/modules/epoch/domain"
	marker "beatmark/internal/modules/marker/domain"
	"beatmark/internal/modules/session/domain"
	signal "beatmark/internal/modules/signal/domain"
	view "beatmark/internal/modules/view/domain"
	"beatmark/internal/platform/clock"
	apperrors "beatmark/internal/platform/errors"
	"beatmark/internal/platform/id"
	"beatmark/internal/platform/logging"
)

// AnyLabel makes marker navigation consider every marker, as a command label
// or as the configured default.
const AnyLabel = "*"

type Options struct {
	Editor        editor.Options
	InitialWidth  float64
	ZoomFactor    float64
	NavigateLabel marker.Label
}

// SessionService owns the open session and runs every core operation on it,
// one at a time.
type SessionService struct {
	clock    clock.Clock
	idGen    id.Generator
	logger   hclog.Logger
	opts     Options
	observer editor.Callbacks

	mu      sync.Mutex
	current *domain.Session
	pending []domain.Change
}

// NewSessionService wires the core. observer receives every marker callback
// after the session has recorded it.
func NewSessionService(clk clock.Clock, idGen id.Generator, logger hclog.Logger, opts Options, observer editor.Callbacks) *SessionService {
	if opts.ZoomFactor <= 1 {
		opts.ZoomFactor = 2
	}
	if opts.NavigateLabel == "" {
		opts.NavigateLabel = marker.LabelSuspect
	}
	return &SessionService{
		clock:    clk,
		idGen:    idGen,
		logger:   logging.OrNull(logger).Named("session"),
		opts:     opts,
		observer: observer,
	}
}

// Open replaces the current session. seeds overrides the dataset's own
// markers when non-nil.
func (s *SessionService) Open(ds domain.Dataset, seeds []marker.Seed) (*domain.Session, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if seeds == nil {
		seeds = ds.Markers
	}
	store, err := marker.NewStore(seeds)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}

	epochs, issues := epoch.Segment(ds.Events, ds.Primary.End())
	for _, issue := range issues {
		s.logger.Debug("epoch adjusted", "epoch", issue.Name, "start", issue.Start, "end", issue.End, "reason", issue.Err)
	}

	nav, err := view.NewNavigator(view.Bounds{Start: ds.Primary.Start(), End: ds.Primary.End()}, s.opts.InitialWidth)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:        s.idGen.New(),
		OpenedAt:  s.clock.Now(),
		Dataset:   ds,
		Store:     store,
		Epochs:    epochs,
		Samples:   epoch.NewIndex(epochs, ds.Primary.Times),
		Selection: epoch.NewSelection(epoch.Names(epochs)),
		View:      nav,
		Saved:     store.Version(),
	}
	sess.Editor = editor.NewController(store, ds.Primary, s.opts.Editor, s.callbacks(sess))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	s.pending = nil
	s.record(sess, "open", map[string]any{"dataset": ds.Key, "markers": store.Len(), "epochs": len(epochs)})
	s.logger.Info("session opened", "id", sess.ID, "dataset", ds.Key, "markers", store.Len(), "epochs", len(epochs))
	return sess, nil
}

func (s *SessionService) callbacks(sess *domain.Session) editor.Callbacks {
	return editor.Callbacks{
		OnAdded: func(id int64, t float64) {
			s.pending = append(s.pending, domain.Change{Kind: domain.ChangeAdded, MarkerID: id, NewTime: t})
			s.record(sess, "add", map[string]any{"id": id, "time": t})
			if s.observer.OnAdded != nil {
				s.observer.OnAdded(id, t)
			}
		},
		OnRemoved: func(id int64) {
			s.pending = append(s.pending, domain.Change{Kind: domain.ChangeRemoved, MarkerID: id})
			s.record(sess, "remove", map[string]any{"id": id})
			if s.observer.OnRemoved != nil {
				s.observer.OnRemoved(id)
			}
		},
		OnDragged: func(id int64, oldTime, newTime float64) {
			s.pending = append(s.pending, domain.Change{Kind: domain.ChangeDragged, MarkerID: id, OldTime: oldTime, NewTime: newTime})
			s.record(sess, "drag", map[string]any{"id": id, "from": oldTime, "to": newTime})
			if s.observer.OnDragged != nil {
				s.observer.OnDragged(id, oldTime, newTime)
			}
		},
	}
}

func (s *SessionService) record(sess *domain.Session, action string, params map[string]any) {
	sess.History = append(sess.History, domain.HistoryEntry{Action: action, At: s.clock.Now(), Params: params})
}

// Do runs fn against the open session while holding the session lock.
func (s *SessionService) Do(fn func(*domain.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return apperrors.ErrNoDataset
	}
	return fn(s.current)
}

// Dispatch applies one control-surface command. Conditions the core absorbs
// come back as a note with no changes and no error.
func (s *SessionService) Dispatch(cmd domain.Command) ([]domain.Change, string, error) {
	if err := cmd.Validate(); err != nil {
		return nil, "", err
	}
	var changes []domain.Change
	var note string
	err := s.Do(func(sess *domain.Session) error {
		before := sess.View.Window()
		out, err := s.apply(sess, cmd)
		if err != nil {
			if !absorbed(err) {
				return err
			}
			s.logger.Debug("command absorbed", "command", cmd.Kind, "reason", err)
			note = err.Error()
		}
		if after := sess.View.Window(); after != before {
			out = append(out, domain.Change{Kind: domain.ChangeWindow, OldTime: before.Start, NewTime: after.Start, Detail: fmt.Sprintf("[%.3f, %.3f]", after.Start, after.End)})
		}
		if len(out) > 0 {
			s.record(sess, string(cmd.Kind), commandParams(cmd))
			note = ""
		} else if note == "" {
			note = "no change"
		}
		changes = out
		return nil
	})
	return changes, note, err
}

func (s *SessionService) apply(sess *domain.Session, cmd domain.Command) ([]domain.Change, error) {
	nav := sess.View
	switch cmd.Kind {
	case domain.CommandMode:
		mode, err := editor.ParseMode(cmd.Mode)
		if err != nil {
			return nil, err
		}
		if mode == sess.Editor.Mode() {
			return nil, nil
		}
		if err := sess.Editor.SetMode(mode); err != nil {
			return nil, err
		}
		return []domain.Change{{Kind: domain.ChangeMode, Detail: mode.String()}}, nil
	case domain.CommandPageLeft:
		return nil, nav.PageLeft()
	case domain.CommandPageRight:
		return nil, nav.PageRight()
	case domain.CommandJumpStart:
		return nil, nav.JumpToStart()
	case domain.CommandJumpEnd:
		return nil, nav.JumpToEnd()
	case domain.CommandZoomIn:
		return nil, nav.ZoomIn(s.factor(cmd.Factor))
	case domain.CommandZoomOut:
		return nil, nav.ZoomOut(s.factor(cmd.Factor))
	case domain.CommandNextMarker, domain.CommandPrevMarker:
		times := sess.Store.Times(s.navigationFilter(cmd.Label))
		var moved bool
		if cmd.Kind == domain.CommandNextMarker {
			moved = nav.NextMarker(times)
		} else {
			moved = nav.PrevMarker(times)
		}
		if !moved {
			return nil, fmt.Errorf("%w: no matching marker beyond the window", apperrors.ErrOutOfBounds)
		}
		return nil, nil
	case domain.CommandToggleEpoch:
		on, err := sess.Selection.Toggle(cmd.Epoch)
		if err != nil {
			return nil, err
		}
		return []domain.Change{{Kind: domain.ChangeEpoch, Detail: fmt.Sprintf("%s=%t", cmd.Epoch, on)}}, nil
	case domain.CommandSetEpoch:
		if cur, ok := sess.Selection.Flags()[cmd.Epoch]; ok && cur == cmd.Active {
			return nil, nil
		}
		if err := sess.Selection.Set(cmd.Epoch, cmd.Active); err != nil {
			return nil, err
		}
		return []domain.Change{{Kind: domain.ChangeEpoch, Detail: fmt.Sprintf("%s=%t", cmd.Epoch, cmd.Active)}}, nil
	case domain.CommandZoomSelection:
		return nil, nav.Set(cmd.Start, cmd.End)
	case domain.CommandRelabel:
		id, err := sess.Editor.Relabel(editor.Pointer{X: cmd.X, UnitsPerPixel: cmd.UnitsPerPixel}, marker.Label(cmd.Label))
		if err != nil {
			return nil, err
		}
		m, _ := sess.Store.Get(id)
		return []domain.Change{{Kind: domain.ChangeRelabel, MarkerID: id, NewTime: m.Time, Detail: cmd.Label}}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", apperrors.ErrInvalidInput, cmd.Kind)
}

func (s *SessionService) factor(f float64) float64 {
	if f == 0 {
		return s.opts.ZoomFactor
	}
	return f
}

func (s *SessionService) navigationFilter(label string) func(marker.Marker) bool {
	if label == "" {
		label = string(s.opts.NavigateLabel)
	}
	if label == AnyLabel {
		return nil
	}
	return marker.WithLabel(marker.Label(label))
}

// Pointer routes a pointer event to the editor or the overview.
func (s *SessionService) Pointer(ev domain.PointerEvent) ([]domain.Change, string, error) {
	if err := ev.Validate(); err != nil {
		return nil, "", err
	}
	var changes []domain.Change
	var note string
	err := s.Do(func(sess *domain.Session) error {
		s.pending = nil
		before := sess.View.Window()
		err := s.route(sess, ev)
		if err != nil {
			if !absorbed(err) {
				return err
			}
			s.logger.Debug("pointer absorbed", "phase", ev.Phase, "target", ev.Target, "x", ev.X, "reason", err)
			note = err.Error()
		}
		changes = s.pending
		s.pending = nil
		if after := sess.View.Window(); after != before && ev.Phase != domain.PhaseMove {
			changes = append(changes, domain.Change{Kind: domain.ChangeWindow, OldTime: before.Start, NewTime: after.Start, Detail: fmt.Sprintf("[%.3f, %.3f]", after.Start, after.End)})
			s.record(sess, "overview", map[string]any{"start": after.Start, "end": after.End})
		}
		return nil
	})
	return changes, note, err
}

func (s *SessionService) route(sess *domain.Session, ev domain.PointerEvent) error {
	if ev.Target == domain.TargetOverview {
		switch ev.Phase {
		case domain.PhaseDown:
			sess.View.PressOverview(ev.X)
		case domain.PhaseMove:
			sess.View.MoveOverview(ev.X)
		case domain.PhaseUp, domain.PhaseCancel:
			sess.View.ReleaseOverview(ev.X)
		}
		return nil
	}
	p := editor.Pointer{X: ev.X, UnitsPerPixel: ev.UnitsPerPixel, Outside: ev.Outside}
	switch ev.Phase {
	case domain.PhaseDown:
		return sess.Editor.Down(p)
	case domain.PhaseMove:
		sess.Editor.Move(p)
	case domain.PhaseUp:
		return sess.Editor.Up(p)
	case domain.PhaseCancel:
		sess.Editor.Cancel()
	}
	return nil
}

// Bands returns, per column of [from, to], the first active epoch covering the
// sample at the column centre, or "".
func Bands(sess *domain.Session, from, to float64, columns int) []string {
	out := make([]string, columns)
	if columns == 0 || to <= from {
		return out
	}
	times := sess.Dataset.Primary.Times
	step := (to - from) / float64(columns)
	for c := range out {
		t := from + (float64(c)+0.5)*step
		i := sort.SearchFloat64s(times, t)
		if i == len(times) {
			i--
		}
		for _, name := range sess.Samples.At(i) {
			if name != epoch.None && sess.Selection.Active(name) {
				out[c] = name
				break
			}
		}
	}
	return out
}

// Channel picks the primary or secondary series.
func Channel(sess *domain.Session, secondary bool) (signal.Series, bool) {
	if !secondary {
		return sess.Dataset.Primary, true
	}
	if sess.Dataset.Secondary == nil {
		return signal.Series{}, false
	}
	return *sess.Dataset.Secondary, true
}

// MarkSaved records that the store at version was persisted. Edits made
// after that version keep the session dirty.
func (s *SessionService) MarkSaved(sess *domain.Session, version uint64, markers int) {
	sess.Saved = version
	s.record(sess, "save", map[string]any{"markers": markers})
}

func absorbed(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidRange) ||
		errors.Is(err, apperrors.ErrUnknownMarker) ||
		errors.Is(err, apperrors.ErrOutOfBounds) ||
		errors.Is(err, apperrors.ErrUnterminatedEpoch)
}

func commandParams(cmd domain.Command) map[string]any {
	params := map[string]any{}
	switch cmd.Kind {
	case domain.CommandMode:
		params["mode"] = cmd.Mode
	case domain.CommandZoomIn, domain.CommandZoomOut:
		params["factor"] = cmd.Factor
	case domain.CommandNextMarker, domain.CommandPrevMarker:
		params["label"] = cmd.Label
	case domain.CommandToggleEpoch, domain.CommandSetEpoch:
		params["epoch"] = cmd.Epoch
	case domain.CommandZoomSelection:
		params["start"], params["end"] = cmd.Start, cmd.End
	case domain.CommandRelabel:
		params["label"], params["x"] = cmd.Label, cmd.X
	}
	return params
}
