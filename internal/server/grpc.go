package server

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/copyleftdev/bayesopt/internal/api"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/metrics"
)

const transportGRPC = "grpc"

// OptimizerServiceServer is the handler type of the gRPC optimizer service.
// Every method takes and returns a google.protobuf.Struct holding the same
// JSON object as the JSON-RPC method of the same name.
type OptimizerServiceServer interface {
	Call(ctx context.Context, method string, params []byte) (interface{}, error)
}

var _ OptimizerServiceServer = (*Server)(nil)

// ServiceDesc describes bayesopt.v1.OptimizerService.
var ServiceDesc = serviceDesc()

func serviceDesc() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: api.ServiceName,
		HandlerType: (*OptimizerServiceServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "bayesopt/v1/optimizer.proto",
	}
	for _, method := range api.Methods {
		name, _ := api.GRPCMethod(method)
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    methodHandler(method),
		})
	}
	return desc
}

func methodHandler(method string) grpc.MethodHandler {
	fullMethod, _ := api.GRPCFullMethod(method)
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return invokeStruct(ctx, srv.(OptimizerServiceServer), method, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		return interceptor(ctx, in, info, handler)
	}
}

func invokeStruct(ctx context.Context, srv OptimizerServiceServer, method string, in *structpb.Struct) (out *structpb.Struct, err error) {
	start := time.Now()
	defer func() {
		metrics.RPCRequestDuration.WithLabelValues(transportGRPC, method).Observe(time.Since(start).Seconds())
		metrics.RPCRequestsTotal.WithLabelValues(transportGRPC, method, metrics.Outcome(err)).Inc()
	}()

	params, err := protojson.Marshal(in)
	if err != nil {
		return nil, grpcError(ctx, apperrors.Errorf(apperrors.CodeInvalidParams, "invalid params: %v", err))
	}
	result, err := srv.Call(ctx, method, params)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	out, err = toStruct(result)
	if err != nil {
		return nil, grpcError(ctx, apperrors.Wrap(err, "encoding result"))
	}
	return out, nil
}

// toStruct converts a JSON-encodable result object to a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// grpcError converts err to a status error and records its wire code in the
// response trailer, so clients recover the exact taxonomy sentinel.
func grpcError(ctx context.Context, err error) error {
	code := apperrors.RPCCode(err)
	_ = grpc.SetTrailer(ctx, metadata.Pairs(api.ErrorCodeKey, strconv.Itoa(code)))
	return status.Error(apperrors.GRPCCode(code), err.Error())
}

// NewGRPCServer builds a gRPC server exposing s and the standard health
// service. Panics are recovered and every call is logged.
func NewGRPCServer(s *Server, logger *logging.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		apperrors.RecoveryUnaryInterceptor(logger),
		logging.UnaryServerInterceptor(logger),
	))
	gs := grpc.NewServer(opts...)

	desc := ServiceDesc
	gs.RegisterService(&desc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return gs
}
