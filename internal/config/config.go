package config

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/routefilter/internal/errors"
	"github.com/vango-dev/routefilter/pkg/router"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "routefilter.json"

	// DefaultName is the project name used when none is configured.
	DefaultName = "routefilter"

	// DefaultAddress is the default HTTP listen address.
	DefaultAddress = ":8080"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"
)

// Hook types.
const (
	HookLog  = "log"
	HookDeny = "deny"
	HookGate = "gate"
)

// Config represents routefilter.json.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Routes is the route table. Order matters: later routes take
	// precedence when several patterns match.
	Routes []RouteConfig `json:"routes"`

	// Before configures hooks that run before the route handler.
	Before HooksConfig `json:"before,omitempty"`

	// After configures hooks that run after the route handler.
	After HooksConfig `json:"after,omitempty"`

	// Server contains HTTP surface settings.
	Server ServerConfig `json:"server,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// source is where the config was loaded from.
	source string
}

// RouteConfig maps a pattern to a handler name.
type RouteConfig struct {
	Pattern string `json:"pattern"`
	Handler string `json:"handler"`
}

// HooksConfig is a hook registry. Set All for one hook on every route, or
// Routes for hooks keyed by route pattern ("*" matches every route).
type HooksConfig struct {
	All    *HookConfig           `json:"all,omitempty"`
	Routes map[string]HookConfig `json:"routes,omitempty"`
}

// IsZero reports whether no hook is configured.
func (h HooksConfig) IsZero() bool {
	return h.All == nil && len(h.Routes) == 0
}

// Keys returns the route keys in sorted order.
func (h HooksConfig) Keys() []string {
	keys := make([]string, 0, len(h.Routes))
	for k := range h.Routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HookConfig configures a builtin hook.
type HookConfig struct {
	// Type is "log", "deny" or "gate".
	Type string `json:"type"`

	// Param is the parameter index a deny hook inspects.
	Param int `json:"param,omitempty"`

	// Values are the parameter values a deny hook aborts on.
	Values []string `json:"values,omitempty"`
}

// ServerConfig contains HTTP surface settings.
type ServerConfig struct {
	// Address is the listen address.
	Address string `json:"address,omitempty"`

	// MetricsPath serves Prometheus metrics. Use "-" to disable.
	MetricsPath string `json:"metrics_path,omitempty"`

	// Events enables the /events WebSocket stream (default: true).
	Events *bool `json:"events,omitempty"`

	// EventsOrigins lists the browser origins, besides the server's own,
	// allowed to subscribe to /events. "*" allows any origin.
	EventsOrigins []string `json:"events_origins,omitempty"`
}

// EventsEnabled reports whether the event stream is on.
func (s ServerConfig) EventsEnabled() bool {
	return s.Events == nil || *s.Events
}

// MetricsEnabledPath returns the metrics path, or "" when disabled.
func (s ServerConfig) MetricsEnabledPath() string {
	if s.MetricsPath == "-" {
		return ""
	}
	return s.MetricsPath
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error (default: info).
	Level string `json:"level,omitempty"`

	// Format is "text" or "json" (default: text).
	Format string `json:"format,omitempty"`
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a Config with default values and no routes.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from location, a file path, a directory holding
// routefilter.json or an s3://bucket/key URL.
func Load(ctx context.Context, location string) (*Config, error) {
	if IsS3Location(location) {
		client, err := NewS3Client()
		if err != nil {
			return nil, err
		}
		return LoadS3(ctx, client, location)
	}

	if info, err := os.Stat(location); err == nil && info.IsDir() {
		location = filepath.Join(location, ConfigFileName)
	}
	return LoadFile(location)
}

// LoadFile reads configuration from a file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R100").
				WithDetailf("no %s at %s", filepath.Base(path), filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("R101").WithDetail(err.Error()).Wrap(err)
	}
	return Parse(path, data)
}

// Parse decodes, defaults and validates configuration read from source.
func Parse(source string, data []byte) (*Config, error) {
	cfg := &Config{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, decodeError(source, data, err)
	}

	cfg.source = source
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeError(source string, data []byte, err error) error {
	e := errors.New("R101").WithDetail(err.Error()).Wrap(err)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		e.WithSource(source, data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		e.WithSource(source, data, typeErr.Offset)
	}
	return e
}

// Source returns where the config was loaded from.
func (c *Config) Source() string {
	return c.source
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Routes))
	for i, r := range c.Routes {
		if _, dup := seen[r.Pattern]; dup {
			return errors.New("R103").WithDetailf("pattern %q appears more than once", r.Pattern)
		}
		seen[r.Pattern] = struct{}{}

		if r.Handler == "" {
			return errors.New("R105").WithDetailf("routes[%d] (%q)", i, r.Pattern)
		}
		if _, err := router.CompilePattern(r.Pattern); err != nil {
			return errors.New("R104").WithDetail(err.Error()).Wrap(err)
		}
	}

	if err := c.Before.validate("before"); err != nil {
		return err
	}
	if err := c.After.validate("after"); err != nil {
		return err
	}

	if p := c.Server.MetricsPath; p != "-" && !strings.HasPrefix(p, "/") {
		return errors.New("R110").WithDetailf("metrics_path %q", p)
	}
	for _, origin := range c.Server.EventsOrigins {
		if !validOrigin(origin) {
			return errors.New("R110").WithDetailf("events_origins entry %q", origin)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("R107").WithDetailf("level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("R107").WithDetailf("format %q", c.Log.Format)
	}
	return nil
}

func (h HooksConfig) validate(name string) error {
	if h.All != nil && len(h.Routes) > 0 {
		return errors.New("R106").WithDetail(name)
	}
	if h.All != nil {
		return h.All.validate(name + ".all")
	}
	for _, key := range h.Keys() {
		hc := h.Routes[key]
		if err := hc.validate(name + ".routes[" + key + "]"); err != nil {
			return err
		}
	}
	return nil
}

func (hc HookConfig) validate(path string) error {
	switch hc.Type {
	case HookLog, HookGate:
		return nil
	case HookDeny:
		if hc.Param < 0 || len(hc.Values) == 0 {
			return errors.New("R111").WithDetail(path)
		}
		return nil
	default:
		return errors.New("R102").WithDetailf("%s: %q", path, hc.Type)
	}
}

// validOrigin accepts "*" or a scheme://host[:port] origin without a path.
func validOrigin(origin string) bool {
	if origin == "*" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != "" && (u.Path == "" || u.Path == "/") && u.RawQuery == ""
}
