package in

import (
	"context"

	sessiondto "beatmark/internal/modules/session/dto"
	sessionin "beatmark/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Open(ctx context.Context, path string, reset bool) (sessiondto.SessionOutput, error) {
	return h.usecase.Open(ctx, sessiondto.OpenInput{Path: path, Reset: reset})
}

// Hide deselects the named epochs before rows or statistics are read.
func (h CLIHandler) Hide(ctx context.Context, epochs []string) error {
	for _, name := range epochs {
		if _, err := h.usecase.Dispatch(ctx, sessiondto.CommandInput{Kind: "set_epoch", Epoch: name, Active: false}); err != nil {
			return err
		}
	}
	return nil
}

func (h CLIHandler) Epochs(ctx context.Context) ([]sessiondto.EpochOutput, error) {
	return h.usecase.Epochs(ctx)
}

func (h CLIHandler) Markers(ctx context.Context, from, to *float64) ([]sessiondto.MarkerOutput, error) {
	return h.usecase.Markers(ctx, sessiondto.MarkerQuery{From: from, To: to})
}

func (h CLIHandler) Rows(ctx context.Context) ([]sessiondto.RowOutput, error) {
	return h.usecase.Rows(ctx)
}

func (h CLIHandler) Spans(ctx context.Context) ([]sessiondto.SpanOutput, error) {
	return h.usecase.Spans(ctx)
}

func (h CLIHandler) Stats(ctx context.Context, plugin string) (sessiondto.StatsOutput, error) {
	return h.usecase.Stats(ctx, sessiondto.StatsInput{Plugin: plugin})
}

func (h CLIHandler) Summary(ctx context.Context, plugin string) (sessiondto.SummaryOutput, error) {
	return h.usecase.Summary(ctx, sessiondto.SummaryInput{Plugin: plugin})
}
