package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanTeda/personal-ledger-backend/internal/config"
)

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{LogLevel: "info", LogFormat: "json"}}
	var buf bytes.Buffer

	logger, err := SetupLogger(cfg, &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"app"`)

	cfg.Server.LogLevel = "loud"
	_, err = SetupLogger(cfg, &buf)
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_BACKEND_CLI_TEST_A=from-file\nLEDGER_BACKEND_CLI_TEST_B=from-file\n"), 0o600))

	t.Setenv("LEDGER_BACKEND_CLI_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("LEDGER_BACKEND_CLI_TEST_B") })

	require.NoError(t, LoadEnvFile(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-env", os.Getenv("LEDGER_BACKEND_CLI_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("LEDGER_BACKEND_CLI_TEST_B"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("server:\n  port: 6000\n"), 0o600))

	cfg, err := LoadAndValidateConfig(config.New(), good)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: 0\ndatabase:\n  engine: mysql\n"), 0o600))

	_, err = LoadAndValidateConfig(config.New(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "invalid database engine 'mysql'")
}

func TestGracefulShutdown_ParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, stop := GracefulShutdown(parent)
	defer stop()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}

func TestWaitForShutdown(t *testing.T) {
	ctx, stop := GracefulShutdown(context.Background())
	stop()

	called := false
	err := WaitForShutdown(ctx, func() error {
		called = true
		return errors.New("close failed")
	})
	assert.True(t, called)
	assert.EqualError(t, err, "close failed")

	assert.NoError(t, WaitForShutdown(ctx, nil))
}
