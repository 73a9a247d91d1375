package usecase

import (
	"context"

	"beatmark/internal/modules/aggregate/dto"
	aggregatein "beatmark/internal/modules/aggregate/port/in"
	"beatmark/internal/modules/aggregate/service"
)

type Interactor struct {
	svc *service.AggregateService
}

func NewInteractor(svc *service.AggregateService) aggregatein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) Aggregate(ctx context.Context, input dto.AggregateInput) (dto.AggregateOutput, error) {
	return i.svc.Aggregate(ctx, input)
}
