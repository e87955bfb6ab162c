package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"chunk unparseable", func(c *Config) { c.Transfers.ChunkSize = "big" }, "chunk_size"},
		{"chunk unaligned", func(c *Config) { c.Transfers.ChunkSize = "1MB" }, "multiple of 320 KiB"},
		{"chunk too large", func(c *Config) { c.Transfers.ChunkSize = "64MiB" }, "chunk_size"},
		{"chunk zero", func(c *Config) { c.Transfers.ChunkSize = "0" }, "chunk_size"},
		{"threshold zero", func(c *Config) { c.Transfers.SmallFileThreshold = "0" }, "small_file_threshold"},
		{"threshold invalid", func(c *Config) { c.Transfers.SmallFileThreshold = "x" }, "small_file_threshold"},
		{"bandwidth", func(c *Config) { c.Transfers.BandwidthLimit = "lots" }, "bandwidth_limit"},
		{"workers low", func(c *Config) { c.Transfers.DownloadWorkers = 0 }, "download_workers"},
		{"workers high", func(c *Config) { c.Transfers.DownloadWorkers = 33 }, "download_workers"},
		{"depth", func(c *Config) { c.Transfers.MaxDepth = 2000 }, "max_depth"},
		{"retries negative", func(c *Config) { c.Transfers.MaxRetries = -1 }, "max_retries"},
		{"retries high", func(c *Config) { c.Transfers.MaxRetries = 11 }, "max_retries"},
		{"timeout invalid", func(c *Config) { c.Network.Timeout = "soon" }, "timeout"},
		{"timeout small", func(c *Config) { c.Network.Timeout = "10ms" }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	cfg.Transfers.MaxDepth = 0
	cfg.Network.Timeout = "never"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "max_depth")
	assert.Contains(t, err.Error(), "timeout")
}

func TestValidate_ChunkBoundaries(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Transfers.ChunkSize = "320KiB"
	assert.NoError(t, Validate(cfg))

	cfg.Transfers.ChunkSize = "60MiB"
	assert.NoError(t, Validate(cfg))
}
