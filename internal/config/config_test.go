package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeTempConfig(t, "relay.toml", `
[relay]
listen_address = "127.0.0.1:9000"
tcp_nodelay = true

[stream]
read_limit = 1024
chunk_size = 256
write_high_watermark = 4096

[logging]
log_level = "DEBUG"
target = "stderr"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Relay)
	assert.Equal(t, "127.0.0.1:9000", cfg.Relay.ListenAddress)
	require.NotNil(t, cfg.Relay.TCPNoDelay)
	assert.True(t, *cfg.Relay.TCPNoDelay)

	assert.Equal(t, 1024, cfg.Stream.EffectiveReadLimit())
	assert.Equal(t, 256, cfg.Stream.EffectiveChunkSize())
	assert.Equal(t, 4096, cfg.Stream.EffectiveWriteHighWatermark())

	require.NotNil(t, cfg.Logging)
	assert.Equal(t, LogLevelDebug, cfg.Logging.LogLevel)
	assert.Equal(t, "stderr", cfg.Logging.Target)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeTempConfig(t, "relay.json", `{
  "relay": {"listen_address": ":9000"},
  "stream": {"read_limit": 2048},
  "logging": {"log_level": "INFO"}
}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Relay.ListenAddress)
	assert.Equal(t, 2048, cfg.Stream.EffectiveReadLimit())
	assert.Equal(t, LogLevelInfo, cfg.Logging.LogLevel)
}

func TestLoadConfigUnknownExtensionTriesBoth(t *testing.T) {
	path := writeTempConfig(t, "relay.conf", `{"relay": {"listen_address": ":1"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":1", cfg.Relay.ListenAddress)

	path = writeTempConfig(t, "other.conf", `[relay]
listen_address = ":2"`)
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":2", cfg.Relay.ListenAddress)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfigInvalidContent(t *testing.T) {
	path := writeTempConfig(t, "bad.toml", `relay = [[[`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestEffectiveDefaults(t *testing.T) {
	var s *StreamConfig
	assert.Equal(t, DefaultReadLimit, s.EffectiveReadLimit())
	assert.Equal(t, DefaultChunkSize, s.EffectiveChunkSize())
	assert.Equal(t, DefaultWriteHighWatermark, s.EffectiveWriteHighWatermark())

	empty := &StreamConfig{}
	assert.Equal(t, DefaultReadLimit, empty.EffectiveReadLimit())
}

func TestValidate(t *testing.T) {
	neg := -1
	zero := 0
	pos := 64

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty is valid", Config{}, ""},
		{"negative read limit", Config{Stream: &StreamConfig{ReadLimit: &neg}}, "read_limit"},
		{"zero chunk size", Config{Stream: &StreamConfig{ChunkSize: &zero}}, "chunk_size"},
		{"negative watermark", Config{Stream: &StreamConfig{WriteHighWatermark: &neg}}, "write_high_watermark"},
		{"valid stream", Config{Stream: &StreamConfig{ReadLimit: &pos, ChunkSize: &pos, WriteHighWatermark: &pos}}, ""},
		{"bad log level", Config{Logging: &LoggingConfig{LogLevel: "LOUD"}}, "log_level"},
		{"relative log target", Config{Logging: &LoggingConfig{Target: "logs/out.log"}}, "logging.target"},
		{"stdout target", Config{Logging: &LoggingConfig{Target: "stdout"}}, ""},
		{"file target", Config{Logging: &LoggingConfig{Target: "/var/log/relay.log"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsFilePath(t *testing.T) {
	assert.True(t, IsFilePath("/var/log/relay.log"))
	assert.False(t, IsFilePath("stdout"))
	assert.False(t, IsFilePath("stderr"))
	assert.False(t, IsFilePath("relative/path.log"))
}
