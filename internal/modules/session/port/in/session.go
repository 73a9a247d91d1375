package in

import (
	"context"

	"beatmark/internal/modules/session/dto"
)

type Usecase interface {
	Open(ctx context.Context, input dto.OpenInput) (dto.SessionOutput, error)
	Dispatch(ctx context.Context, input dto.CommandInput) (dto.ChangeSet, error)
	Pointer(ctx context.Context, input dto.PointerInput) (dto.ChangeSet, error)
	Snapshot(ctx context.Context) (dto.SnapshotOutput, error)
	Trace(ctx context.Context, input dto.TraceInput) (dto.TraceOutput, error)
	Markers(ctx context.Context, query dto.MarkerQuery) ([]dto.MarkerOutput, error)
	Epochs(ctx context.Context) ([]dto.EpochOutput, error)
	Selection(ctx context.Context) ([]dto.SelectionOutput, error)
	Rows(ctx context.Context) ([]dto.RowOutput, error)
	Spans(ctx context.Context) ([]dto.SpanOutput, error)
	History(ctx context.Context) ([]dto.HistoryOutput, error)
	Save(ctx context.Context) (dto.SaveOutput, error)
	Stats(ctx context.Context, input dto.StatsInput) (dto.StatsOutput, error)
	Summary(ctx context.Context, input dto.SummaryInput) (dto.SummaryOutput, error)
}
