package out

import (
	"context"

	"beatmark/internal/modules/aggregate/dto"
	aggregatein "beatmark/internal/modules/aggregate/port/in"
	epoch "beatmark/internal/modules/epoch/domain"
	sessionout "beatmark/internal/modules/session/port/out"
)

// AggregatorAdapter hands exploded rows to the plugin-backed aggregate module.
type AggregatorAdapter struct {
	aggregate aggregatein.Usecase
}

func NewAggregatorAdapter(aggregate aggregatein.Usecase) sessionout.Aggregator {
	return &AggregatorAdapter{aggregate: aggregate}
}

func (a *AggregatorAdapter) Aggregate(ctx context.Context, plugin string, rows []epoch.Row) (sessionout.EpochStats, error) {
	input := dto.AggregateInput{Plugin: plugin, Rows: make([]dto.RowInput, 0, len(rows))}
	for _, r := range rows {
		input.Rows = append(input.Rows, dto.RowInput{MarkerID: r.MarkerID, Time: r.Time, Label: r.Label, Epoch: r.Epoch, IBI: r.IBI})
	}
	out, err := a.aggregate.Aggregate(ctx, input)
	if err != nil {
		return nil, err
	}
	return out.Epochs, nil
}
