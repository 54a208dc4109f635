package server

import (
	"errors"
	"strings"
	"time"
)

// Config holds the HTTP surface settings.
type Config struct {
	// Address is the listen address.
	// Default: ":8080"
	Address string

	// MetricsPath serves Prometheus metrics. Empty disables the endpoint.
	// Default: "/metrics"
	MetricsPath string

	// Events enables the /events WebSocket stream.
	// Default: true
	Events bool

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds
	ShutdownTimeout time.Duration

	// RequestTimeout bounds how long a request waits for the loop.
	// Default: 5 seconds
	RequestTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:           ":8080",
		MetricsPath:       "/metrics",
		Events:            true,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestTimeout:    5 * time.Second,
	}
}

// withDefaults fills zero durations and the address from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return errors.New("server: metrics path must start with /")
	}
	if c.ReadHeaderTimeout < 0 || c.ShutdownTimeout < 0 || c.RequestTimeout < 0 {
		return errors.New("server: timeouts must not be negative")
	}
	return nil
}
