package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/middleware/auth"
	"github.com/IanTeda/personal-ledger-backend/internal/middleware/ratelimit"
	"github.com/IanTeda/personal-ledger-backend/internal/middleware/trace"
)

// HealthCheckMethod stays reachable without credentials.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

// Options configures the RPC server.
type Options struct {
	// AuthToken, when set, is required as a bearer token on every call.
	AuthToken string
	// RequestsPerMinute per peer host; zero disables rate limiting.
	RequestsPerMinute int
	Logger            *log.Logger
	ServerOptions     []grpc.ServerOption
}

// Server hosts the categories, utilities and health services.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	trace   *trace.Interceptor
	limiter *ratelimit.Limiter
	svc     CategoryService
	logger  *log.Logger
}

// NewServer assembles the interceptor chain and registers every service.
// The health status starts as NOT_SERVING until MarkServing succeeds.
func NewServer(svc CategoryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentRPC)

	s := &Server{
		health: health.NewServer(),
		trace:  trace.NewInterceptor(),
		svc:    svc,
		logger: logger,
	}

	chain := []grpc.UnaryServerInterceptor{
		log.UnaryServerInterceptor(logger),
		s.trace.Unary(),
		StatusInterceptor(),
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute})
		chain = append(chain, s.limiter.Unary(nil))
	}
	chain = append(chain, auth.Unary(opts.AuthToken, HealthCheckMethod))

	serverOpts := append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(chain...)}, opts.ServerOptions...)
	s.grpc = grpc.NewServer(serverOpts...)

	s.grpc.RegisterService(&CategoriesServiceDesc, &categoriesHandler{svc: svc})
	s.grpc.RegisterService(&UtilitiesServiceDesc, utilitiesHandler{})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setServing(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// Serve accepts connections on lis until Stop or Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("RPC server listening", log.FieldAddress, lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serve rpc: %w", err)
	}
	return nil
}

// MarkServing pings the store and flips health to SERVING.
func (s *Server) MarkServing(ctx context.Context) error {
	if err := s.svc.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	s.setServing(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Shutdown reports NOT_SERVING, drains in-flight calls until ctx is done and
// then closes remaining connections.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Graceful shutdown timed out, closing connections")
		s.grpc.Stop()
		<-done
	}
}

// Metrics returns the access log counters.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

func (s *Server) setServing(st healthpb.HealthCheckResponse_ServingStatus) {
	for _, name := range []string{"", CategoriesServiceName, UtilitiesServiceName} {
		s.health.SetServingStatus(name, st)
	}
}
