package out

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	aggregaterpc "beatmark/internal/modules/aggregate/adapter/out/rpc"
	"beatmark/internal/modules/aggregate/domain"
	aggregateout "beatmark/internal/modules/aggregate/port/out"
	"beatmark/internal/platform/logging"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost launches a plugin process per call and talks to it over go-plugin.
type GRPCHost struct {
	logger hclog.Logger
}

func NewGRPCHost(logger hclog.Logger) aggregateout.Host {
	return &GRPCHost{logger: logging.OrNull(logger).Named("plugin")}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest, defaultStartTimeout)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	capabilities := make([]domain.Capability, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		capabilities = append(capabilities, domain.Capability(capability))
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Capabilities: capabilities, Statistics: meta.Statistics}, nil
}

func (h *GRPCHost) Aggregate(ctx context.Context, manifest domain.Manifest, request domain.Request) (domain.Result, error) {
	client, closeFn, err := h.connect(manifest, defaultStartTimeout)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, timeoutFor(manifest, defaultCallTimeout))
	defer cancel()

	in := &aggregaterpc.AggregateRequest{Rows: make([]aggregaterpc.Row, 0, len(request.Samples)), Statistics: request.Statistics}
	for _, s := range request.Samples {
		in.Rows = append(in.Rows, aggregaterpc.Row{MarkerID: s.MarkerID, Time: s.Time, Label: s.Label, Epoch: s.Epoch, IBI: s.IBI})
	}
	response, err := client.Aggregate(callCtx, in)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, manifest.Name)
		}
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if response.Epochs == nil {
		return domain.Result{}, nil
	}
	return domain.Result(response.Epochs), nil
}

func (h *GRPCHost) connect(manifest domain.Manifest, startTimeout time.Duration) (aggregaterpc.AggregatorClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  aggregaterpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          aggregaterpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     startTimeout,
		Logger:           h.logger.With("plugin", manifest.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(aggregaterpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(aggregaterpc.AggregatorClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func timeoutFor(manifest domain.Manifest, fallback time.Duration) time.Duration {
	if manifest.TimeoutMS > 0 {
		return time.Duration(manifest.TimeoutMS) * time.Millisecond
	}
	return fallback
}

func (h *GRPCHost) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
