package in

import (
	"context"

	sessiondto "beatmark/internal/modules/session/dto"
	sessionin "beatmark/internal/modules/session/port/in"
)

// TUIHandler exposes the editing session to the terminal UI. Pointer
// coordinates are already converted to seconds.
type TUIHandler struct {
	usecase sessionin.Usecase
}

func NewTUIHandler(usecase sessionin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase}
}

func (h TUIHandler) Open(ctx context.Context, path string, reset bool) (sessiondto.SessionOutput, error) {
	return h.usecase.Open(ctx, sessiondto.OpenInput{Path: path, Reset: reset})
}

func (h TUIHandler) SetMode(ctx context.Context, mode string) (sessiondto.ChangeSet, error) {
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: "mode", Mode: mode})
}

// Navigate runs one of page_left, page_right, jump_start, jump_end,
// next_marker or prev_marker. label filters marker navigation.
func (h TUIHandler) Navigate(ctx context.Context, kind, label string) (sessiondto.ChangeSet, error) {
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: kind, Label: label})
}

// Zoom with factor 0 uses the configured factor.
func (h TUIHandler) Zoom(ctx context.Context, in bool, factor float64) (sessiondto.ChangeSet, error) {
	kind := "zoom_out"
	if in {
		kind = "zoom_in"
	}
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: kind, Factor: factor})
}

func (h TUIHandler) ZoomTo(ctx context.Context, start, end float64) (sessiondto.ChangeSet, error) {
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: "zoom_selection", Start: start, End: end})
}

func (h TUIHandler) ToggleEpoch(ctx context.Context, name string) (sessiondto.ChangeSet, error) {
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: "toggle_epoch", Epoch: name})
}

func (h TUIHandler) Relabel(ctx context.Context, x, unitsPerPixel float64, label string) (sessiondto.ChangeSet, error) {
	return h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: "relabel", X: x, UnitsPerPixel: unitsPerPixel, Label: label})
}

func (h TUIHandler) Pointer(ctx context.Context, phase, target string, x, unitsPerPixel float64, outside bool) (sessiondto.ChangeSet, error) {
	return h.usecase.Pointer(ctx, sessiondto.PointerInput{Phase: phase, Target: target, X: x, UnitsPerPixel: unitsPerPixel, Outside: outside})
}

func (h TUIHandler) Snapshot(ctx context.Context) (sessiondto.SnapshotOutput, error) {
	return h.usecase.Snapshot(ctx)
}

func (h TUIHandler) Trace(ctx context.Context, secondary bool, from, to float64, columns int) (sessiondto.TraceOutput, error) {
	return h.usecase.Trace(ctx, sessiondto.TraceInput{Secondary: secondary, From: from, To: to, Columns: columns})
}

func (h TUIHandler) Epochs(ctx context.Context) ([]sessiondto.EpochOutput, error) {
	return h.usecase.Epochs(ctx)
}

func (h TUIHandler) Selection(ctx context.Context) ([]sessiondto.SelectionOutput, error) {
	return h.usecase.Selection(ctx)
}

func (h TUIHandler) Spans(ctx context.Context) ([]sessiondto.SpanOutput, error) {
	return h.usecase.Spans(ctx)
}

func (h TUIHandler) History(ctx context.Context) ([]sessiondto.HistoryOutput, error) {
	return h.usecase.History(ctx)
}

func (h TUIHandler) Save(ctx context.Context) (sessiondto.SaveOutput, error) {
	return h.usecase.Save(ctx)
}

func (h TUIHandler) Stats(ctx context.Context, plugin string) (sessiondto.StatsOutput, error) {
	return h.usecase.Stats(ctx, sessiondto.StatsInput{Plugin: plugin})
}

func (h TUIHandler) Summary(ctx context.Context, plugin string) (sessiondto.SummaryOutput, error) {
	return h.usecase.Summary(ctx, sessiondto.SummaryInput{Plugin: plugin})
}
