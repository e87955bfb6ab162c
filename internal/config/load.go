package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	setIfNotEmpty(&cfg.Remote.TenantID, env.TenantID)
	setIfNotEmpty(&cfg.Remote.ClientID, env.ClientID)

	secret := env.ClientSecret

	// 4. CLI flags (pointer fields: nil = not specified)
	setIfSet(&cfg.Remote.HostName, cli.HostName)
	setIfSet(&cfg.Remote.SiteName, cli.SiteName)
	setIfSet(&cfg.Remote.TenantID, cli.TenantID)
	setIfSet(&cfg.Remote.ClientID, cli.ClientID)
	setIfSet(&cfg.Remote.DriveID, cli.DriveID)
	setIfSet(&secret, cli.ClientSecret)

	if cli.MaxRetries != nil {
		cfg.Transfers.MaxRetries = *cli.MaxRetries
	}

	// 5. Validate the merged result
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return newResolved(cfg, cfgPath, secret, env.AccessToken)
}

// newResolved parses the string-typed sizes and durations of a validated
// Config.
func newResolved(cfg *Config, cfgPath, secret, token string) (*Resolved, error) {
	r := &Resolved{
		Config:       *cfg,
		ConfigPath:   cfgPath,
		StatePath:    DefaultStatePath(),
		ClientSecret: secret,
		AccessToken:  token,
	}

	var err error

	if r.ChunkSizeBytes, err = ParseSize(cfg.Transfers.ChunkSize); err != nil {
		return nil, err
	}

	if r.SmallFileThresholdBytes, err = ParseSize(cfg.Transfers.SmallFileThreshold); err != nil {
		return nil, err
	}

	if r.BandwidthBytesPerSec, err = ParseRate(cfg.Transfers.BandwidthLimit); err != nil {
		return nil, err
	}

	if r.Timeout, err = parseDuration(cfg.Network.Timeout); err != nil {
		return nil, err
	}

	return r, nil
}

// RequireRemote reports every missing setting needed to reach a site:
// host, site, and either an access token or tenant/client credentials.
func (r *Resolved) RequireRemote() error {
	var errs []error

	if r.Remote.HostName == "" {
		errs = append(errs, errors.New("remote host name is required (host_name or --host)"))
	}

	if r.Remote.SiteName == "" {
		errs = append(errs, errors.New("remote site name is required (site_name or --site)"))
	}

	if r.AccessToken != "" {
		return errors.Join(errs...)
	}

	if r.Remote.TenantID == "" {
		errs = append(errs, fmt.Errorf("tenant id is required (tenant_id, %s or --tenant-id)", EnvTenantID))
	}

	if r.Remote.ClientID == "" {
		errs = append(errs, fmt.Errorf("client id is required (client_id, %s or --client-id)", EnvClientID))
	}

	if r.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("client secret is required (%s or --client-secret)", EnvClientSecret))
	}

	return errors.Join(errs...)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setIfSet(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
