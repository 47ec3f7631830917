// Package rpc gRPC健康检查服务
//
// 只暴露标准的grpc.health.v1.Health服务，状态由数据库连通性决定：
// 数据库Ping失败时整体状态为NOT_SERVING，供负载均衡和容器编排探测。
package rpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 对外报告的服务名（空字符串代表整个服务器）
const ServiceName = "library.v1.Library"

// Pinger 依赖的连通性检查（*sql.DB实现了它）
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthServer gRPC健康检查服务器
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

// NewHealthServer 创建健康检查服务器，pinger为nil时始终报告SERVING
func NewHealthServer(pinger Pinger, interval time.Duration, log *zap.Logger) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &HealthServer{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		timeout:  3 * time.Second,
		log:      log,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	// 注册反射服务（用于grpcurl调试）
	reflection.Register(s.server)
	return s
}

// Check 检查一次依赖并更新状态
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			s.log.Warn("database ping failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch 周期性检查，直到ctx取消
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve 在listener上提供服务（阻塞）
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// GracefulStop 停止服务：先标记NOT_SERVING，再等待进行中的请求完成
func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
