package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

// execute runs ledgerd with args and returns what it printed.
func execute(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "off"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func seed(t *testing.T, dir string) (active, inactive core.Category) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "personal_ledger.db"), storage.Options{})
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	mk := func(code, name string) core.Category {
		d, err := core.NewDraft(core.DraftInput{Code: code, Name: name, CategoryType: "expense"})
		require.NoError(t, err)
		c, err := repo.Create(ctx, d)
		require.NoError(t, err)
		return c
	}
	active = mk("GRO", "Groceries")
	inactive = mk("FUEL", "Fuel")
	inactive, err = repo.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)
	return active, inactive
}

func TestVersion(t *testing.T) {
	out, err := execute(context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "ledgerd version dev\n", out)
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(context.Background(), "--data-dir", dir, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite: no migrations applied")

	out, err = execute(context.Background(), "--data-dir", dir, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite: schema version 1")

	out, err = execute(context.Background(), "--data-dir", dir, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite: schema version 1")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(context.Background(), "--db-engine", "mysql", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database engine 'mysql'")
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	active, inactive := seed(t, dir)

	_, err := execute(context.Background(), "--data-dir", dir, "purge")
	require.Error(t, err)

	_, err = execute(context.Background(), "--data-dir", dir, "purge", "--id", "nope")
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	out, err := execute(context.Background(), "--data-dir", dir, "purge", "--inactive")
	require.NoError(t, err)
	assert.Equal(t, "purged 1 inactive categories\n", out)

	out, err = execute(context.Background(), "--data-dir", dir, "purge", "--id", active.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "deleted category "+active.ID.String()+"\n", out)

	_, err = execute(context.Background(), "--data-dir", dir, "purge", "--id", inactive.ID.String())
	require.Error(t, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestPingWithoutServer(t *testing.T) {
	_, err := execute(context.Background(), "--port", "1", "ping", "--timeout", "500ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping 127.0.0.1:1")
}

func freePort(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return strconv.Itoa(port)
}

func TestServeAndPing(t *testing.T) {
	dir := t.TempDir()
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := execute(ctx, "--data-dir", dir, "--port", port, "--auth-token", "s3cret", "serve")
		done <- err
	}()

	var out string
	require.Eventually(t, func() bool {
		var err error
		out, err = execute(context.Background(), "--port", port, "--auth-token", "s3cret", "ping", "--timeout", "200ms")
		return err == nil && strings.Contains(out, "(SERVING)")
	}, 10*time.Second, 50*time.Millisecond)
	assert.Contains(t, out, "Pong...")

	_, err := execute(context.Background(), "--port", port, "--auth-token", "wrong", "ping", "--timeout", "500ms")
	require.Error(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestEventsRequiresAMQP(t *testing.T) {
	_, err := execute(context.Background(), "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amqp.url must be set")
}
