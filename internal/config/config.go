// Package config loads daemon settings from defaults, a YAML file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

const (
	// EnvPrefix prefixes every environment override; "server.port" is read
	// from LEDGER_BACKEND_SERVER_PORT.
	EnvPrefix = "LEDGER_BACKEND"

	configDir  = "config"
	configName = "ledger-backend"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
}

type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	Port              int           `mapstructure:"port"`
	DataDir           string        `mapstructure:"data_dir"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	AuthToken         string        `mapstructure:"auth_token"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Engine       string        `mapstructure:"engine"`
	Path         string        `mapstructure:"path"`
	URL          string        `mapstructure:"url"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	PageSize     int           `mapstructure:"page_size"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

var defaults = map[string]any{
	"server.address":             "127.0.0.1",
	"server.port":                50059,
	"server.data_dir":            "data/",
	"server.log_level":           "warn",
	"server.log_format":          "text",
	"server.auth_token":          "",
	"server.requests_per_minute": 0,
	"server.shutdown_timeout":    "30s",
	"database.engine":            "sqlite",
	"database.path":              "personal_ledger.db",
	"database.url":               "",
	"database.max_open_conns":    10,
	"database.page_size":         storage.DefaultPageSize,
	"database.query_timeout":     "5s",
	"amqp.url":                   "",
	"amqp.exchange":              "personal_ledger",
	"amqp.queue":                 "category_events",
}

// New returns a viper instance carrying the defaults and the environment
// binding. Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or config/ledger-backend.yaml when path is empty, into
// v and decodes the merged settings. Only the default file may be missing.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(configDir)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// ListenAddress is the host:port the RPC server binds.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// DatabasePath resolves the SQLite file against the data directory unless
// it is absolute.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database.Path) || c.Server.DataDir == "" {
		return c.Database.Path
	}
	return filepath.Join(c.Server.DataDir, c.Database.Path)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Server
	if strings.TrimSpace(c.Server.Address) == "" {
		errors = append(errors, "server address cannot be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of trace, debug, info, warn, error, off", c.Server.LogLevel))
	}
	if f := strings.ToLower(c.Server.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Server.LogFormat))
	}
	if c.Server.RequestsPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid requests per minute %d: must be zero (disabled) or positive", c.Server.RequestsPerMinute))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.Server.ShutdownTimeout))
	}

	// Database
	engine, err := storage.ParseEngine(c.Database.Engine)
	if err != nil {
		errors = append(errors, fmt.Sprintf("invalid database engine '%s': must be one of %v", c.Database.Engine, storage.Engines()))
	}
	switch engine {
	case storage.EngineSQLite:
		if c.Database.Path == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite engine")
		}
	case storage.EnginePostgres:
		if c.Database.URL == "" {
			errors = append(errors, "database URL is required when using postgres engine")
		} else if u, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid database URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid database URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}
	if c.Database.MaxOpenConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid max open connections %d: must be at least 1", c.Database.MaxOpenConns))
	}
	if c.Database.PageSize < 1 || c.Database.PageSize > core.MaxPageSize {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and %d", c.Database.PageSize, core.MaxPageSize))
	}
	if c.Database.QueryTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be positive", c.Database.QueryTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
