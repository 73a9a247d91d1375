package in

import (
	"context"

	"beatmark/internal/modules/aggregate/dto"
)

type Usecase interface {
	List(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	Aggregate(ctx context.Context, input dto.AggregateInput) (dto.AggregateOutput, error)
}
