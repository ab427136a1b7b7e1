package grpcsvc

import (
	"errors"
	"net"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server — gRPC-сервер с метриками, health и reflection.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *log.Entry
}

// NewServer регистрирует сервис исполнения. reg == nil означает глобальный реестр.
func NewServer(svc FulfillmentServiceServer, reg prometheus.Registerer, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "grpc-server")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	grpcMetrics := registerServerMetrics(reg, promgrpc.NewServerMetrics(), logger)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))

	RegisterFulfillmentServiceServer(srv, svc)
	grpcMetrics.InitializeMetrics(srv)
	reflection.Register(srv)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	return &Server{grpc: srv, health: healthServer, logger: logger}
}

// registerServerMetrics переиспользует уже зарегистрированный коллектор:
// в тестах сервер создаётся несколько раз на одном реестре.
func registerServerMetrics(reg prometheus.Registerer, m *promgrpc.ServerMetrics, logger *log.Entry) *promgrpc.ServerMetrics {
	if err := reg.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("register grpc metrics")
	}
	return m
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.WithField("addr", lis.Addr().String()).Info("grpc server listening")
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown переводит health в NOT_SERVING и ждёт завершения вызовов не дольше timeout.
func (s *Server) Shutdown(timeout time.Duration) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		s.logger.Warn("grpc graceful stop timed out, forcing")
		s.grpc.Stop()
	}
}
