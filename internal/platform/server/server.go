package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ogurasousui/dp-roster-sync/internal/adapters/grpc/handler"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	log        *zap.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築し、RosterService と Health を登録します。
func New(listenAddr string, roster handler.RosterServiceServer, log *zap.Logger, opts ...grpc.ServerOption) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	srv := grpc.NewServer(opts...)
	handler.RegisterRosterServiceServer(srv, roster)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(handler.RosterServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(srv)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     hs,
		log:        log.Named("grpc"),
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は既存のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop は Health を NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
