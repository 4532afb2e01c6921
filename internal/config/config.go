// Package config resolves runtime settings for the sockdo processes.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultSocketPath = "/tmp/backend.sock"
	DefaultPort       = "3000"
	DefaultLogLevel   = "INFO"
	DefaultLogFormat  = "text"
	DefaultTimeout    = 5 * time.Second
)

// Environment variables.
const (
	EnvConfigFile = "SOCKDO_CONFIG"
	EnvSocketPath = "SOCKDO_SOCKET"
	EnvPort       = "PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
	EnvGatewayURL = "SOCKDO_GATEWAY"
)

// Config holds process configuration.
type Config struct {
	// SocketPath is the backend's Unix domain socket.
	SocketPath string `yaml:"socket_path"`
	// Port is the gateway's HTTP listen port.
	Port string `yaml:"port"`
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
	// RequestTimeout bounds one gateway-to-backend exchange.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// GatewayURL is where the CLI and TUI reach the gateway.
	GatewayURL string `yaml:"gateway_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SocketPath:     DefaultSocketPath,
		Port:           DefaultPort,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		RequestTimeout: DefaultTimeout,
		GatewayURL:     "http://localhost:" + DefaultPort,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $SOCKDO_CONFIG when path is empty), then environment variables.
// A missing file named only by the environment is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSocketPath); v != "" {
		c.SocketPath = v
	}
	port := os.Getenv(EnvPort)
	if port != "" {
		c.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv(EnvGatewayURL); v != "" {
		c.GatewayURL = v
	} else if port != "" && c.GatewayURL == Default().GatewayURL {
		c.GatewayURL = "http://localhost:" + port
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return errors.New("socket path must not be empty")
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// HTTPAddr returns the gateway listen address.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("", c.Port)
}
