package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "aggregator"
	serviceName       = "beatmark.aggregate.v1.Aggregator"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodAggregate   = "/" + serviceName + "/Aggregate"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BEATMARK_PLUGIN",
	MagicCookieValue: "beatmark",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
	Statistics   []string `json:"statistics"`
}

type Row struct {
	MarkerID int64   `json:"marker_id"`
	Time     float64 `json:"time"`
	Label    string  `json:"label"`
	Epoch    string  `json:"epoch"`
	IBI      float64 `json:"ibi"`
}

type AggregateRequest struct {
	Rows       []Row    `json:"rows"`
	Statistics []string `json:"statistics,omitempty"`
}

// AggregateResponse holds finite values only; JSON has no NaN.
type AggregateResponse struct {
	Epochs map[string]map[string]float64 `json:"epochs"`
}

type AggregatorServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Aggregate(ctx context.Context, in *AggregateRequest) (*AggregateResponse, error)
}

type AggregatorClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Aggregate(ctx context.Context, in *AggregateRequest) (*AggregateResponse, error)
}

type aggregatorClient struct {
	conn *grpc.ClientConn
}

func NewAggregatorClient(conn *grpc.ClientConn) AggregatorClient {
	return &aggregatorClient{conn: conn}
}

func (c *aggregatorClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *aggregatorClient) Aggregate(ctx context.Context, in *AggregateRequest) (*AggregateResponse, error) {
	out := &AggregateResponse{}
	if err := c.conn.Invoke(ctx, methodAggregate, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterAggregatorServer(server grpc.ServiceRegistrar, impl AggregatorServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AggregatorServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetMetadata",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.GetMetadata(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetMetadata}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.GetMetadata(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Aggregate",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &AggregateRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Aggregate(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAggregate}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*AggregateRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Aggregate(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/aggregate-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AggregatorServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAggregatorServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAggregatorClient(conn), nil
}

func PluginMap(impl AggregatorServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
