package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/IanTeda/personal-ledger-backend/internal/middleware/auth"
)

// Client is a thin caller of the ledger services.
type Client struct {
	conn  *grpc.ClientConn
	token string
	owned bool
}

// Dial connects to target without transport security.
func Dial(target, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn, token: token, owned: true}, nil
}

// NewClient wraps an existing connection, which the caller keeps owning.
func NewClient(conn *grpc.ClientConn, token string) *Client {
	return &Client{conn: conn, token: token}
}

func (c *Client) invoke(ctx context.Context, service, method string, in, out any) error {
	ctx = auth.BearerToken(ctx, c.token)
	return c.conn.Invoke(ctx, FullMethod(service, method), in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) CategoryCreate(ctx context.Context, in *CategoryCreateRequest) (*CategoryCreateResponse, error) {
	out := new(CategoryCreateResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryCreate", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoriesCreateBatch(ctx context.Context, in *CategoriesCreateBatchRequest) (*CategoriesCreateBatchResponse, error) {
	out := new(CategoriesCreateBatchResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoriesCreateBatch", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryGet(ctx context.Context, in *CategoryGetRequest) (*CategoryGetResponse, error) {
	out := new(CategoryGetResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryGet", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryGetByCode(ctx context.Context, in *CategoryGetByCodeRequest) (*CategoryGetResponse, error) {
	out := new(CategoryGetResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryGetByCode", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryGetBySlug(ctx context.Context, in *CategoryGetBySlugRequest) (*CategoryGetResponse, error) {
	out := new(CategoryGetResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryGetBySlug", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoriesList(ctx context.Context, in *CategoriesListRequest) (*CategoriesListResponse, error) {
	out := new(CategoriesListResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoriesList", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryUpdate(ctx context.Context, in *CategoryUpdateRequest) (*CategoryUpdateResponse, error) {
	out := new(CategoryUpdateResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryUpdate", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryActivate(ctx context.Context, in *CategoryActivateRequest) (*CategoryStateResponse, error) {
	out := new(CategoryStateResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryActivate", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryDeactivate(ctx context.Context, in *CategoryDeactivateRequest) (*CategoryStateResponse, error) {
	out := new(CategoryStateResponse)
	if err := c.invoke(ctx, CategoriesServiceName, "CategoryDeactivate", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping returns the server's pong message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	out := new(PingResponse)
	if err := c.invoke(ctx, UtilitiesServiceName, "Ping", &PingRequest{}, out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Health asks the standard health service about service; "" means the
// whole server.
func (c *Client) Health(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Close releases the connection when the client dialled it.
func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	return c.conn.Close()
}
