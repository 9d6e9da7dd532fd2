// Package cli provides the start-up helpers shared by the ledgerd commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/IanTeda/personal-ledger-backend/internal/config"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

// SetupLogger builds the application logger from the server settings and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.Server.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads a .env file for local development. Variables already
// set in the environment win. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadAndValidateConfig loads configuration into v and validates it.
func LoadAndValidateConfig(v *viper.Viper, path string) (*config.Config, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM
// or when parent is done. The returned stop releases the signal handler.
func GracefulShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.FromContext(ctx).Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// WaitForShutdown blocks until ctx is cancelled and then runs cleanup.
func WaitForShutdown(ctx context.Context, cleanup func() error) error {
	<-ctx.Done()
	if cleanup == nil {
		return nil
	}
	return cleanup()
}
