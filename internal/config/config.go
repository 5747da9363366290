package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

const (
	DefaultPollInterval    = 33 * time.Millisecond
	DefaultCacheMaxEntries = 64
	DefaultSnapshotScale   = 1.0

	minPollInterval  = time.Millisecond
	maxPollInterval  = 10 * time.Second
	maxSnapshotScale = 8.0
)

// CacheConfig bounds the daemon's extracted-bitmap cache.
type CacheConfig struct {
	// MaxEntries is the number of distinct cursor bitmaps kept in memory.
	MaxEntries int `yaml:"max_entries"`
}

// IPCConfig controls the daemon's unix socket.
type IPCConfig struct {
	Enabled bool `yaml:"enabled"`
	// Socket overrides the default $XDG_RUNTIME_DIR/cursorsync.sock.
	Socket string `yaml:"socket,omitempty"`
}

// SnapshotFormat is the encoding used by `cursorsync snapshot`.
type SnapshotFormat string

const (
	SnapshotPNG  SnapshotFormat = "png"
	SnapshotCBOR SnapshotFormat = "cbor"
)

// SnapshotConfig sets defaults for snapshot output.
type SnapshotConfig struct {
	Format SnapshotFormat `yaml:"format"`
	Scale  float64        `yaml:"scale"` // PNG only; 1 keeps native size
}

// Config is the effective cursorsync configuration.
type Config struct {
	PollInterval time.Duration  `yaml:"poll_interval"`
	Identity     string         `yaml:"identity"` // sampled | content
	LogLevel     string         `yaml:"log_level"`
	Display      string         `yaml:"display,omitempty"`
	XAuthority   string         `yaml:"xauthority,omitempty"`
	Cache        CacheConfig    `yaml:"cache"`
	IPC          IPCConfig      `yaml:"ipc"`
	Snapshot     SnapshotConfig `yaml:"snapshot"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: DefaultPollInterval,
		Identity:     string(cursor.IdentitySampled),
		LogLevel:     "info",
		Cache: CacheConfig{
			MaxEntries: DefaultCacheMaxEntries,
		},
		IPC: IPCConfig{
			Enabled: true,
		},
		Snapshot: SnapshotConfig{
			Format: SnapshotPNG,
			Scale:  DefaultSnapshotScale,
		},
	}
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "cursorsync", "config.yaml"), nil
}

// IdentityMode returns the parsed identity mode. Validate guarantees it parses.
func (c *Config) IdentityMode() cursor.IdentityMode {
	mode, err := cursor.ParseIdentityMode(c.Identity)
	if err != nil {
		return cursor.IdentitySampled
	}
	return mode
}

// SlogLevel maps log_level onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.PollInterval < minPollInterval || c.PollInterval > maxPollInterval {
		return &ValidationError{Path: "poll_interval", Err: fmt.Errorf("poll_interval must be between %s and %s", minPollInterval, maxPollInterval)}
	}
	if _, err := cursor.ParseIdentityMode(c.Identity); err != nil {
		return &ValidationError{Path: "identity", Err: fmt.Errorf("identity must be one of: sampled, content")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Cache.MaxEntries < 1 {
		return &ValidationError{Path: "cache.max_entries", Err: fmt.Errorf("max_entries must be >= 1")}
	}
	if c.IPC.Socket != "" && !filepath.IsAbs(c.IPC.Socket) {
		return &ValidationError{Path: "ipc.socket", Err: fmt.Errorf("socket must be an absolute path")}
	}
	switch c.Snapshot.Format {
	case SnapshotPNG, SnapshotCBOR:
	default:
		return &ValidationError{Path: "snapshot.format", Err: fmt.Errorf("format must be one of: png, cbor")}
	}
	if c.Snapshot.Scale <= 0 || c.Snapshot.Scale > maxSnapshotScale {
		return &ValidationError{Path: "snapshot.scale", Err: fmt.Errorf("scale must be > 0 and <= %g", maxSnapshotScale)}
	}
	return nil
}
