package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

// internalMessage is all a caller learns about an internal failure.
const internalMessage = "internal error"

// Code returns the status code for a classified error.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	ce, ok := core.AsError(err)
	if !ok {
		ce = core.Internal("rpc", err)
	}
	switch e := ce.(type) {
	case *core.ValidationError:
		return codes.InvalidArgument
	case *core.NotFoundError:
		return codes.NotFound
	case *core.AuthenticationError:
		return codes.Unauthenticated
	case *core.ConflictError:
		return codes.FailedPrecondition
	case *core.InternalError:
		switch {
		case e.Timeout():
			return codes.DeadlineExceeded
		case e.Canceled():
			return codes.Canceled
		}
		return codes.Internal
	default:
		panic("rpc: unhandled core error type")
	}
}

// ToStatus renders err as a gRPC status error. Errors that already carry a
// status pass through. Internal details go to the log, never to the caller.
func ToStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := Code(err)
	switch code {
	case codes.Internal, codes.DeadlineExceeded, codes.Canceled:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			log.ComponentRPC, "", log.NewFields().WithOutcome(string(core.KindInternal)))
		msg := internalMessage
		switch code {
		case codes.DeadlineExceeded:
			msg = "deadline exceeded"
		case codes.Canceled:
			msg = "request canceled"
		}
		return status.Error(code, msg)
	default:
		return status.Error(code, err.Error())
	}
}

// StatusInterceptor converts handler and inner interceptor errors into
// statuses. It sits just inside the access logger.
func StatusInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, ToStatus(ctx, err)
		}
		return resp, nil
	}
}
