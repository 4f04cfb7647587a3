package grpcx

import (
	"context"
	"encoding/json"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/rpccontract"
	"github.com/venturahq/ventura/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type HubRPCServer interface {
	GetHealth(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ExportState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StartValidation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartSwarm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSessions(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

type HubHandler struct {
	hub *service.ValidationService
}

func NewHubHandler(hub *service.ValidationService) *HubHandler {
	return &HubHandler{hub: hub}
}

func RegisterHubServer(server *grpc.Server, handler HubRPCServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: rpccontract.ServiceName,
		HandlerType: (*HubRPCServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetHealth", Handler: getHealthHandler},
			{MethodName: "GetSummary", Handler: getSummaryHandler},
			{MethodName: "ExportState", Handler: exportStateHandler},
			{MethodName: "StartValidation", Handler: startValidationHandler},
			{MethodName: "StartSwarm", Handler: startSwarmHandler},
			{MethodName: "GetResult", Handler: getResultHandler},
			{MethodName: "CancelSession", Handler: cancelSessionHandler},
			{MethodName: "ListSessions", Handler: listSessionsHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "proto/ventura/v1/hub.proto",
	}, handler)
}

func (h *HubHandler) GetHealth(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(h.hub.Health())
}

func (h *HubHandler) GetSummary(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := h.hub.Summary()
	if err != nil {
		return nil, err
	}
	return toStruct(summary)
}

func (h *HubHandler) ExportState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	state, err := h.hub.ExportState()
	if err != nil {
		return nil, err
	}
	return toStruct(state)
}

func (h *HubHandler) StartValidation(_ context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[service.StartValidationRequest](request)
	if err != nil {
		return nil, err
	}
	session, err := h.hub.StartSequentialValidation(decoded)
	if err != nil {
		return nil, err
	}
	return toStruct(session)
}

func (h *HubHandler) StartSwarm(_ context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[service.StartValidationRequest](request)
	if err != nil {
		return nil, err
	}
	session, err := h.hub.StartScenarioSwarm(decoded)
	if err != nil {
		return nil, err
	}
	return toStruct(session)
}

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

func (h *HubHandler) GetResult(_ context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[sessionIDRequest](request)
	if err != nil {
		return nil, err
	}
	result, err := h.hub.GetResult(decoded.SessionID)
	if err != nil {
		return nil, err
	}
	return toStruct(result)
}

func (h *HubHandler) CancelSession(_ context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	decoded, err := decodeStruct[sessionIDRequest](request)
	if err != nil {
		return nil, err
	}
	session, err := h.hub.Cancel(decoded.SessionID)
	if err != nil {
		return nil, err
	}
	return toStruct(session)
}

func (h *HubHandler) ListSessions(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	sessions, err := h.hub.ListSessions()
	if err != nil {
		return nil, err
	}
	return toList(sessions)
}

func toStruct(value any) (*structpb.Struct, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return nil, domain.Internal("failed to encode response", err)
	}

	decoded := map[string]any{}
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		return nil, domain.Internal("failed to shape response object", err)
	}
	result, err := structpb.NewStruct(decoded)
	if err != nil {
		return nil, domain.Internal("failed to convert response to protobuf struct", err)
	}
	return result, nil
}

func toList(value any) (*structpb.ListValue, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return nil, domain.Internal("failed to encode response list", err)
	}

	decoded := []any{}
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		return nil, domain.Internal("failed to shape response list", err)
	}
	result, err := structpb.NewList(decoded)
	if err != nil {
		return nil, domain.Internal("failed to convert response to protobuf list", err)
	}
	return result, nil
}

func decodeStruct[T any](input *structpb.Struct) (T, error) {
	var out T
	serialized, err := json.Marshal(input.AsMap())
	if err != nil {
		return out, domain.InvalidArgument("request payload could not be encoded")
	}
	if err := json.Unmarshal(serialized, &out); err != nil {
		return out, domain.InvalidArgument("request payload shape is invalid")
	}
	return out, nil
}

func getHealthHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(emptypb.Empty)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).GetHealth(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodGetHealth}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).GetHealth(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, request, info, handler)
}

func getSummaryHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(emptypb.Empty)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).GetSummary(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodGetSummary}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).GetSummary(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, request, info, handler)
}

func exportStateHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(emptypb.Empty)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).ExportState(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodExportState}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).ExportState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, request, info, handler)
}

func startValidationHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(structpb.Struct)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).StartValidation(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodStartValidation}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).StartValidation(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, request, info, handler)
}

func startSwarmHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(structpb.Struct)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).StartSwarm(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodStartSwarm}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).StartSwarm(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, request, info, handler)
}

func getResultHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(structpb.Struct)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).GetResult(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodGetResult}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).GetResult(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, request, info, handler)
}

func cancelSessionHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(structpb.Struct)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).CancelSession(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodCancelSession}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).CancelSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, request, info, handler)
}

func listSessionsHandler(srv any, ctx context.Context, decoder func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	request := new(emptypb.Empty)
	if err := decoder(request); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HubRPCServer).ListSessions(ctx, request)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpccontract.MethodListSessions}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HubRPCServer).ListSessions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, request, info, handler)
}
