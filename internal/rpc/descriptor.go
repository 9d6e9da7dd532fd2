package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// unaryMethod builds a method descriptor that decodes Req, runs the
// interceptor chain and dispatches to call on the registered server S.
func unaryMethod[S any, Req any, Resp any](service, name string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod joins a service and method name the way gRPC routes them.
func FullMethod(service, name string) string {
	return "/" + service + "/" + name
}
