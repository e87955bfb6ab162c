package config

import (
	"github.com/tonimelisma/sharepoint-go/internal/graph"
	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

// Default values for configuration options: layer 0 of the override chain.
const (
	defaultLogLevel           = "info"
	defaultChunkSize          = "32000KiB"
	defaultSmallFileThreshold = "128MiB"
	defaultBandwidthLimit     = "0"
	defaultMaxRetries         = 0
	defaultTimeout            = "30s"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: defaultLogLevel,
		Transfers: TransfersConfig{
			ChunkSize:          defaultChunkSize,
			SmallFileThreshold: defaultSmallFileThreshold,
			BandwidthLimit:     defaultBandwidthLimit,
			DownloadWorkers:    transfer.DefaultDownloadWorkers,
			MaxDepth:           transfer.DefaultMaxDepth,
			MaxRetries:         defaultMaxRetries,
		},
		Network: NetworkConfig{
			Timeout:   defaultTimeout,
			UserAgent: graph.DefaultUserAgent,
		},
	}
}
