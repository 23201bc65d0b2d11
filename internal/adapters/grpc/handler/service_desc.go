package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RosterServiceName は公開する gRPC サービスの完全修飾名です。
const RosterServiceName = "dpsync.v1.RosterService"

// メソッド名です。
const (
	MethodSync                  = "Sync"
	MethodGetCurrentRoster      = "GetCurrentRoster"
	MethodGetResumo             = "GetResumo"
	MethodGetTurnover           = "GetTurnover"
	MethodGetAfastados          = "GetAfastados"
	MethodGetAtivosPorCategoria = "GetAtivosPorCategoria"
	MethodListSyncRuns          = "ListSyncRuns"
)

// RosterServiceServer は RosterService のサーバー側インターフェースです。
// リクエストとレスポンスはいずれも google.protobuf.Struct です。
type RosterServiceServer interface {
	Sync(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetCurrentRoster(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetResumo(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetTurnover(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetAfastados(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetAtivosPorCategoria(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListSyncRuns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv RosterServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RosterServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RosterServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RosterServiceDesc は RosterService の grpc.ServiceDesc です。
var RosterServiceDesc = grpc.ServiceDesc{
	ServiceName: RosterServiceName,
	HandlerType: (*RosterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodSync, RosterServiceServer.Sync),
		unaryMethod(MethodGetCurrentRoster, RosterServiceServer.GetCurrentRoster),
		unaryMethod(MethodGetResumo, RosterServiceServer.GetResumo),
		unaryMethod(MethodGetTurnover, RosterServiceServer.GetTurnover),
		unaryMethod(MethodGetAfastados, RosterServiceServer.GetAfastados),
		unaryMethod(MethodGetAtivosPorCategoria, RosterServiceServer.GetAtivosPorCategoria),
		unaryMethod(MethodListSyncRuns, RosterServiceServer.ListSyncRuns),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dpsync/v1/roster.proto",
}

// RegisterRosterServiceServer は srv を s に登録します。
func RegisterRosterServiceServer(s grpc.ServiceRegistrar, srv RosterServiceServer) {
	s.RegisterService(&RosterServiceDesc, srv)
}

// FullMethod は "/dpsync.v1.RosterService/<method>" 形式のメソッド名を返します。
func FullMethod(method string) string {
	return "/" + RosterServiceName + "/" + method
}

// RosterServiceClient は RosterService を呼び出すクライアントです。
type RosterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRosterServiceClient は RosterServiceClient を生成します。
func NewRosterServiceClient(cc grpc.ClientConnInterface) *RosterServiceClient {
	return &RosterServiceClient{cc: cc}
}

// Call は指定したメソッドを呼び出します。in が nil の場合は空の Struct を送ります。
func (c *RosterServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
