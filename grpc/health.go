package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName 是 gateway 连接状态对应的健康检查服务名
const ServiceName = "repost.Gateway"

// HealthServer 封装标准 gRPC 健康检查服务
type HealthServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

// NewHealthServer 创建健康检查服务，初始状态为 NOT_SERVING
func NewHealthServer(addr string, logger zerolog.Logger) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	return &HealthServer{
		addr:   addr,
		server: srv,
		health: h,
		log:    logger.With().Str("component", "grpc").Logger(),
	}
}

// SetConnected 根据 gateway 是否连接更新服务状态
func (h *HealthServer) SetConnected(connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Serve 在 lis 上提供服务，直到 ctx 取消
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		h.health.Shutdown()
		h.server.GracefulStop()
	}()

	h.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server starting")
	if err := h.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc server error: %w", err)
	}
	return nil
}

// Start 监听配置的地址并提供服务
func (h *HealthServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	return h.Serve(ctx, lis)
}
