// Package auth checks a static bearer token on incoming RPCs.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
)

// Unary returns an interceptor that requires "authorization: Bearer <token>"
// on every method except those in exempt. An empty token disables the check.
// Failures are core authentication errors for the status mapper to render.
func Unary(token string, exempt ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(exempt))
	for _, m := range exempt {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token == "" || skip[info.FullMethod] {
			return handler(ctx, req)
		}
		if err := check(ctx, token); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Rejected unauthenticated call",
				log.FieldMethod, info.FullMethod,
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err)
			return nil, err
		}
		return handler(ctx, req)
	}
}

func check(ctx context.Context, token string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return core.Unauthenticated("missing credentials")
	}
	vals := md.Get(authorizationHeader)
	if len(vals) == 0 {
		return core.Unauthenticated("missing credentials")
	}
	v := vals[0]
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return core.Unauthenticated("expected bearer token")
	}
	got := strings.TrimSpace(v[len(bearerPrefix):])
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return core.Unauthenticated("invalid token")
	}
	return nil
}

// BearerToken returns call credentials metadata for clients.
func BearerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationHeader, "Bearer "+token)
}
