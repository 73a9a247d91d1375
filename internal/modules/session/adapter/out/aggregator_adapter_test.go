package out_test

import (
	"context"
	"testing"

	"beatmark/internal/modules/aggregate/dto"
	epoch "beatmark/internal/modules/epoch/domain"
	sessionout "beatmark/internal/modules/session/adapter/out"
)

type fakeAggregate struct {
	got dto.AggregateInput
}

func (f *fakeAggregate) List(context.Context) ([]dto.PluginInfo, error)     { return nil, nil }
func (f *fakeAggregate) Doctor(context.Context) ([]dto.DoctorResult, error) { return nil, nil }
func (f *fakeAggregate) Aggregate(_ context.Context, input dto.AggregateInput) (dto.AggregateOutput, error) {
	f.got = input
	return dto.AggregateOutput{Plugin: input.Plugin, Epochs: map[string]map[string]float64{"rest": {"n": float64(len(input.Rows))}}}, nil
}

func TestAggregatorAdapterMapsRows(t *testing.T) {
	t.Parallel()
	fake := &fakeAggregate{}
	adapter := sessionout.NewAggregatorAdapter(fake)
	stats, err := adapter.Aggregate(context.Background(), "descriptives", []epoch.Row{
		{MarkerID: 2, Time: 1, Label: "N", Epoch: "rest", IBI: 0.9},
		{MarkerID: 3, Time: 2, Label: "S", Epoch: "rest", IBI: 1.0},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if fake.got.Plugin != "descriptives" || len(fake.got.Rows) != 2 || fake.got.Rows[1].Label != "S" {
		t.Fatalf("unexpected input: %+v", fake.got)
	}
	if stats["rest"]["n"] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
