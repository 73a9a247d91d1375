package main

import (
	"context"
	"fmt"

	aggregaterpc "beatmark/internal/modules/aggregate/adapter/out/rpc"
	"beatmark/internal/modules/aggregate/domain"

	"github.com/hashicorp/go-plugin"
)

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *aggregaterpc.Empty) (*aggregaterpc.Metadata, error) {
	return &aggregaterpc.Metadata{
		Name:         "descriptives",
		Version:      "1.0.0",
		Capabilities: []string{string(domain.CapabilityAggregate)},
		Statistics:   domain.Descriptives,
	}, nil
}

func (s *server) Aggregate(_ context.Context, in *aggregaterpc.AggregateRequest) (*aggregaterpc.AggregateResponse, error) {
	req := domain.Request{Samples: make([]domain.Sample, 0, len(in.Rows)), Statistics: in.Statistics}
	for _, r := range in.Rows {
		req.Samples = append(req.Samples, domain.Sample{MarkerID: r.MarkerID, Time: r.Time, Label: r.Label, Epoch: r.Epoch, IBI: r.IBI})
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rows: %w", err)
	}
	return &aggregaterpc.AggregateResponse{Epochs: domain.Describe(req.Samples, req.Statistics)}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: aggregaterpc.HandshakeConfig,
		Plugins:         aggregaterpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
