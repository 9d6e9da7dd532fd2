package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const UtilitiesServiceName = "personal_ledger.UtilitiesService"

// PongMessage is the reply to every Ping.
const PongMessage = "Pong..."

// UtilitiesServer is the server API for the utilities service.
type UtilitiesServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

var UtilitiesServiceDesc = grpc.ServiceDesc{
	ServiceName: UtilitiesServiceName,
	HandlerType: (*UtilitiesServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(UtilitiesServiceName, "Ping", UtilitiesServer.Ping),
	},
	Streams: []grpc.StreamDesc{},
}

type utilitiesHandler struct{}

func (utilitiesHandler) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Message: PongMessage}, nil
}
