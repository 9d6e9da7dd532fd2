package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl.now = c.now
	return rl, c
}

func TestAllow(t *testing.T) {
	rl, c := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "budgets are per client")

	// Rejected requests do not extend the window.
	c.t = c.t.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, 3)
	rl.Allow("a")
	c.t = c.t.Add(9 * time.Minute)
	rl.Allow("b")
	c.t = c.t.Add(2 * time.Minute)

	rl.cleanupStaleEntries()

	assert.Equal(t, 1, rl.ActiveClients())
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	assert.Equal(t, 60, rl.requestsPerMinute)
}

func TestUnary(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	interceptor := rl.Unary(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/personal_ledger.UtilitiesService/Ping"}
	handler := func(ctx context.Context, req any) (any, error) { return "pong", nil }
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 4242}})

	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp)

	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	m := rl.GetMetrics()
	assert.Equal(t, int64(1), m.TotalHits)
	assert.Equal(t, int64(1), m.ClientCount)
}

func TestPeerHost(t *testing.T) {
	assert.Equal(t, "unknown", PeerHost(context.Background()))
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}})
	assert.Equal(t, "127.0.0.1", PeerHost(ctx))
}
