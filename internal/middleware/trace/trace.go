// Package trace tags every RPC with a request id and writes the access log.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries a caller-chosen request id in and the effective
	// one back out.
	RequestIDHeader = "x-request-id"

	maxRequestIDLen = 64
)

// Interceptor handles request tracing and logging
type Interceptor struct {
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	FailedRequests      int64
	AverageResponseTime int64 // in microseconds

	totalMicros int64
}

// NewInterceptor creates a new trace interceptor
func NewInterceptor() *Interceptor {
	return &Interceptor{
		metrics: &Metrics{},
	}
}

// Unary returns the gRPC unary interceptor. It expects handler errors to be
// gRPC statuses already.
func (m *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		requestID := incomingRequestID(ctx)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		logger := log.FromContext(ctx).With(log.FieldRequestID, requestID)
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
		ctx = log.WithContext(ctx, logger)

		peerAddr := ""
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			peerAddr = p.Addr.String()
		}

		logger.Log(ctx, log.LevelTrace, "RPC started",
			log.FieldMethod, info.FullMethod,
			log.FieldPeer, peerAddr)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		code := status.Code(err)
		total := atomic.AddInt64(&m.metrics.totalMicros, duration.Microseconds())
		atomic.StoreInt64(&m.metrics.AverageResponseTime, total/atomic.LoadInt64(&m.metrics.TotalRequests))
		if code != codes.OK {
			atomic.AddInt64(&m.metrics.FailedRequests, 1)
		}

		fields := log.NewFields().
			WithRPC(info.FullMethod, code.String(), duration.Milliseconds()).
			WithPeer(peerAddr).
			WithComponent(log.ComponentTrace)
		logger.Log(ctx, LevelFor(code), "RPC completed", fields.ToSlice()...)

		return resp, err
	}
}

// LevelFor picks the access log level for a status code. Caller mistakes are
// warnings, server faults are errors.
func LevelFor(code codes.Code) slog.Level {
	switch code {
	case codes.OK:
		return slog.LevelInfo
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.AlreadyExists,
		codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted, codes.Canceled,
		codes.OutOfRange:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(RequestIDHeader)
	if len(vals) == 0 || vals[0] == "" || len(vals[0]) > maxRequestIDLen {
		return ""
	}
	return vals[0]
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Interceptor) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		FailedRequests:      atomic.LoadInt64(&m.metrics.FailedRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
