// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for sharepoint-go. Values follow a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

import "time"

// Config is the configuration structure parsed from a TOML file.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Remote    RemoteConfig    `toml:"remote"`
	Transfers TransfersConfig `toml:"transfers"`
	Network   NetworkConfig   `toml:"network"`
}

// RemoteConfig identifies the SharePoint site and document library, and the
// Azure AD app registration used to reach them. The client secret is never
// read from the file.
type RemoteConfig struct {
	HostName string `toml:"host_name"`
	SiteName string `toml:"site_name"`
	TenantID string `toml:"tenant_id"`
	ClientID string `toml:"client_id"`
	DriveID  string `toml:"drive_id"` // empty = the site's default library
}

// TransfersConfig controls chunking, the small-file threshold, concurrency
// and throughput. Sizes accept SI and IEC suffixes.
type TransfersConfig struct {
	ChunkSize          string `toml:"chunk_size"`
	SmallFileThreshold string `toml:"small_file_threshold"`
	BandwidthLimit     string `toml:"bandwidth_limit"`
	DownloadWorkers    int    `toml:"download_workers"`
	MaxDepth           int    `toml:"max_depth"`
	MaxRetries         int    `toml:"max_retries"`
	ResumeUploads      bool   `toml:"resume_uploads"`
}

// NetworkConfig controls the HTTP client used for metadata requests.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath   string
	HostName     *string
	SiteName     *string
	TenantID     *string
	ClientID     *string
	ClientSecret *string
	DriveID      *string
	MaxRetries   *int
}

// Resolved is the fully merged and validated configuration with every size
// and duration parsed.
type Resolved struct {
	Config

	ConfigPath   string
	StatePath    string
	ClientSecret string
	AccessToken  string

	ChunkSizeBytes          int64
	SmallFileThresholdBytes int64
	BandwidthBytesPerSec    int64
	Timeout                 time.Duration
}
