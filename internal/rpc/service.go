// Package rpc exposes the codec over gRPC as the bytecodec.v1.Codec
// service. Requests and responses are google.protobuf.Struct messages.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/bytecodec/internal/codec"
)

const (
	ServiceName = "bytecodec.v1.Codec"

	convertMethod     = "/" + ServiceName + "/Convert"
	listFormatsMethod = "/" + ServiceName + "/ListFormats"
)

// CodecServer is the server API for the Codec service.
type CodecServer interface {
	Convert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFormats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Codec service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Convert", Handler: convertHandler},
		{MethodName: "ListFormats", Handler: listFormatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bytecodec/v1/codec.proto",
}

// RegisterCodecServer registers srv on s.
func RegisterCodecServer(s grpc.ServiceRegistrar, srv CodecServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func convertHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServer).Convert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: convertMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServer).Convert(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listFormatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServer).ListFormats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listFormatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServer).ListFormats(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the Codec service over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Convert sends req to the server and decodes the result.
func (c *Client) Convert(ctx context.Context, req codec.Request, opts ...grpc.CallOption) (codec.Result, error) {
	in, err := EncodeRequest(req)
	if err != nil {
		return codec.Result{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, convertMethod, in, out, opts...); err != nil {
		return codec.Result{}, err
	}
	return DecodeResult(out)
}

// ListFormats returns the server's format table.
func (c *Client) ListFormats(ctx context.Context, opts ...grpc.CallOption) ([]codec.FormatInfo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listFormatsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	return DecodeFormats(out), nil
}
