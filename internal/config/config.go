package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/vdiff/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vdiff.json"

	// DefaultAddr is the default stream server address.
	DefaultAddr = "localhost:7070"

	// DefaultHistorySize is the default number of batches kept per session.
	DefaultHistorySize = 100

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "vdiff"

	// AddrEnv overrides Stream.Addr.
	AddrEnv = "VDIFF_ADDR"
)

// Config represents the complete vdiff.json configuration.
type Config struct {
	// Diff contains differ settings.
	Diff DiffConfig `json:"diff,omitempty"`

	// Session contains session manager settings.
	Session SessionConfig `json:"session,omitempty"`

	// Stream contains stream server settings.
	Stream StreamConfig `json:"stream,omitempty"`

	// Archive contains batch archive settings.
	Archive ArchiveConfig `json:"archive,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DiffConfig contains differ settings.
type DiffConfig struct {
	// BulkInsertThreshold is the number of children an empty list must gain
	// to be filled with one SetChildrenHtml. Zero disables bulk inserts.
	BulkInsertThreshold int `json:"bulkInsertThreshold,omitempty"`
}

// SessionConfig contains session manager settings.
type SessionConfig struct {
	// MaxSessions is the maximum number of live sessions.
	MaxSessions int `json:"maxSessions,omitempty"`

	// IdleTimeout closes sessions idle for this long (e.g., "30m").
	IdleTimeout string `json:"idleTimeout,omitempty"`

	// HistorySize is the number of batches kept per session for resync.
	HistorySize int `json:"historySize,omitempty"`
}

// StreamConfig contains stream server settings.
type StreamConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// WriteTimeout bounds each WebSocket write (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// SendBuffer is the number of batches queued per host.
	SendBuffer int `json:"sendBuffer,omitempty"`

	// AllowedOrigins lists the origins allowed to connect. "*" allows any.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// ArchiveConfig contains S3 batch archive settings.
type ArchiveConfig struct {
	// Enabled turns archiving on.
	Enabled bool `json:"enabled,omitempty"`

	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix for batch objects.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the collectors and serves /metrics.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Session: SessionConfig{
			MaxSessions: 10000,
			IdleTimeout: "30m",
			HistorySize: DefaultHistorySize,
		},
		Stream: StreamConfig{
			Addr:         DefaultAddr,
			WriteTimeout: "10s",
			SendBuffer:   64,
		},
		Archive: ArchiveConfig{
			Prefix: "batches",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vdiff.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadOrDefault loads vdiff.json from dir, or returns the defaults when the
// directory has none. Environment overrides apply either way.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := New()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E500").
				WithDetail("No vdiff.json found in " + filepath.Dir(path))
		}
		return nil, errors.New("E500").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E500").
			WithDetail("Failed to parse vdiff.json: " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E500").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E500").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	// Session
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = d.Session.MaxSessions
	}
	if c.Session.IdleTimeout == "" {
		c.Session.IdleTimeout = d.Session.IdleTimeout
	}
	if c.Session.HistorySize == 0 {
		c.Session.HistorySize = d.Session.HistorySize
	}

	// Stream
	if c.Stream.Addr == "" {
		c.Stream.Addr = d.Stream.Addr
	}
	if c.Stream.WriteTimeout == "" {
		c.Stream.WriteTimeout = d.Stream.WriteTimeout
	}
	if c.Stream.SendBuffer == 0 {
		c.Stream.SendBuffer = d.Stream.SendBuffer
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func (c *Config) applyEnv() {
	if addr := os.Getenv(AddrEnv); addr != "" {
		c.Stream.Addr = addr
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Diff.BulkInsertThreshold < 0 {
		return invalid("diff.bulkInsertThreshold", "must not be negative, got %d", c.Diff.BulkInsertThreshold)
	}
	if c.Session.MaxSessions < 0 {
		return invalid("session.maxSessions", "must not be negative, got %d", c.Session.MaxSessions)
	}
	if c.Session.HistorySize < 0 {
		return invalid("session.historySize", "must not be negative, got %d", c.Session.HistorySize)
	}
	if c.Stream.SendBuffer < 0 {
		return invalid("stream.sendBuffer", "must not be negative, got %d", c.Stream.SendBuffer)
	}
	if _, err := parseDuration(c.Session.IdleTimeout); err != nil {
		return invalid("session.idleTimeout", "%v", err)
	}
	if _, err := parseDuration(c.Stream.WriteTimeout); err != nil {
		return invalid("stream.writeTimeout", "%v", err)
	}
	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return invalid("archive.bucket", "required when the archive is enabled")
		}
		if c.Archive.Region == "" {
			return invalid("archive.region", "required when the archive is enabled")
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("log.format", "unknown format %q", c.Log.Format)
	}
	return nil
}

func invalid(path, format string, args ...any) error {
	return errors.New("E501").
		AtPath(path).
		WithDetailf(format, args...)
}

// parseDuration parses a duration string; empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Newf(errors.CategoryConfig, "negative duration %s", s)
	}
	return d, nil
}

// IdleTimeout returns Session.IdleTimeout as a duration. Call Validate first;
// an unparseable value yields zero.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := parseDuration(c.Session.IdleTimeout)
	return d
}

// WriteTimeout returns Stream.WriteTimeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	d, _ := parseDuration(c.Stream.WriteTimeout)
	return d
}

// StreamURL returns the base URL of the stream server.
func (c *Config) StreamURL() string {
	return "http://" + c.Stream.Addr
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// vdiff.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E500").
				WithDetail("No vdiff.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create vdiff.json or run without one to use the defaults")
		}
		dir = parent
	}
}

// Summary returns a short description of the effective settings for logs.
func (c *Config) Summary() []any {
	return []any{
		"addr", c.Stream.Addr,
		"history_size", c.Session.HistorySize,
		"max_sessions", c.Session.MaxSessions,
		"archive", c.Archive.Enabled,
		"metrics", c.Metrics.Enabled,
	}
}
