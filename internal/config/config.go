package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// LogLevel defines the minimum severity for log output.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Default tuning values, applied when the corresponding fields are absent.
const (
	// DefaultReadLimit bounds ReadLine accumulation and seeds the
	// flow-control watermark (the pause threshold is twice this value).
	DefaultReadLimit = 1 << 16
	// DefaultChunkSize is the read-loop slice size for inbound data.
	DefaultChunkSize = 8 << 10
	// DefaultWriteHighWatermark is the outbound pending-bytes level above
	// which Drain blocks.
	DefaultWriteHighWatermark = 1 << 16
)

// Config is the top-level configuration structure.
type Config struct {
	Relay   *RelayConfig   `json:"relay,omitempty" toml:"relay,omitempty"`
	Stream  *StreamConfig  `json:"stream,omitempty" toml:"stream,omitempty"`
	Logging *LoggingConfig `json:"logging,omitempty" toml:"logging,omitempty"`
}

// RelayConfig holds settings for the relay binary's listener.
type RelayConfig struct {
	ListenAddress string `json:"listen_address,omitempty" toml:"listen_address,omitempty"` // e.g. "127.0.0.1:9000"
	TCPNoDelay    *bool  `json:"tcp_nodelay,omitempty" toml:"tcp_nodelay,omitempty"`
}

// StreamConfig holds buffering and backpressure tuning.
type StreamConfig struct {
	ReadLimit          *int `json:"read_limit,omitempty" toml:"read_limit,omitempty"`
	ChunkSize          *int `json:"chunk_size,omitempty" toml:"chunk_size,omitempty"`
	WriteHighWatermark *int `json:"write_high_watermark,omitempty" toml:"write_high_watermark,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	LogLevel LogLevel `json:"log_level,omitempty" toml:"log_level,omitempty"`
	// Target is "stdout", "stderr", or an absolute file path.
	Target string `json:"target,omitempty" toml:"target,omitempty"`
}

// EffectiveReadLimit returns the configured read limit or the default.
func (s *StreamConfig) EffectiveReadLimit() int {
	if s != nil && s.ReadLimit != nil {
		return *s.ReadLimit
	}
	return DefaultReadLimit
}

// EffectiveChunkSize returns the configured chunk size or the default.
func (s *StreamConfig) EffectiveChunkSize() int {
	if s != nil && s.ChunkSize != nil {
		return *s.ChunkSize
	}
	return DefaultChunkSize
}

// EffectiveWriteHighWatermark returns the configured high watermark or the
// default.
func (s *StreamConfig) EffectiveWriteHighWatermark() int {
	if s != nil && s.WriteHighWatermark != nil {
		return *s.WriteHighWatermark
	}
	return DefaultWriteHighWatermark
}

// IsFilePath reports whether target names a file rather than a standard
// stream. Only absolute paths are accepted as file targets.
func IsFilePath(target string) bool {
	return target != "stdout" && target != "stderr" && filepath.IsAbs(target)
}

// LoadConfig reads and validates a configuration file. The format is chosen
// by extension: .toml and .json are recognized; anything else is tried as
// TOML first, then JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	default:
		if tomlErr := toml.Unmarshal(data, cfg); tomlErr != nil {
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				return nil, fmt.Errorf("config %s is neither valid TOML (%v) nor valid JSON (%v)", path, tomlErr, jsonErr)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values. Absent sections are valid; defaults apply.
func (c *Config) Validate() error {
	if s := c.Stream; s != nil {
		if s.ReadLimit != nil && *s.ReadLimit <= 0 {
			return fmt.Errorf("stream.read_limit must be positive, got %d", *s.ReadLimit)
		}
		if s.ChunkSize != nil && *s.ChunkSize <= 0 {
			return fmt.Errorf("stream.chunk_size must be positive, got %d", *s.ChunkSize)
		}
		if s.WriteHighWatermark != nil && *s.WriteHighWatermark <= 0 {
			return fmt.Errorf("stream.write_high_watermark must be positive, got %d", *s.WriteHighWatermark)
		}
	}
	if l := c.Logging; l != nil {
		switch l.LogLevel {
		case "", LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		default:
			return fmt.Errorf("logging.log_level must be one of DEBUG, INFO, WARNING, ERROR; got %q", l.LogLevel)
		}
		if l.Target != "" && !IsFilePath(l.Target) && l.Target != "stdout" && l.Target != "stderr" {
			return fmt.Errorf("logging.target must be \"stdout\", \"stderr\" or an absolute file path; got %q", l.Target)
		}
	}
	return nil
}
