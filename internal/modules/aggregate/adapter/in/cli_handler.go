package in

import (
	"context"

	"beatmark/internal/modules/aggregate/dto"
	aggregatein "beatmark/internal/modules/aggregate/port/in"
)

type CLIHandler struct {
	usecase aggregatein.Usecase
}

func NewCLIHandler(usecase aggregatein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}
