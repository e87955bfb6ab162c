package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

// Validation range constants.
const (
	minDownloadWorkers = 1
	maxDownloadWorkers = 32
	minMaxDepth        = 1
	maxMaxDepth        = 1024
	minRetries         = 0
	maxRetries         = 10
	minTimeout         = 1 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogLevel(cfg.LogLevel)...)
	errs = append(errs, validateTransfers(&cfg.Transfers)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

func validateTransfers(t *TransfersConfig) []error {
	var errs []error

	errs = append(errs, validateChunkSize(t.ChunkSize)...)

	threshold, err := ParseSize(t.SmallFileThreshold)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("small_file_threshold: %w", err))
	case threshold <= 0:
		errs = append(errs, fmt.Errorf("small_file_threshold: must be positive, got %q", t.SmallFileThreshold))
	}

	if _, err := ParseRate(t.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	errs = append(errs, validateIntRange("download_workers", t.DownloadWorkers, minDownloadWorkers, maxDownloadWorkers)...)
	errs = append(errs, validateIntRange("max_depth", t.MaxDepth, minMaxDepth, maxMaxDepth)...)
	errs = append(errs, validateIntRange("max_retries", t.MaxRetries, minRetries, maxRetries)...)

	return errs
}

func validateChunkSize(s string) []error {
	bytes, err := ParseSize(s)
	if err != nil {
		return []error{fmt.Errorf("chunk_size: %w", err)}
	}

	if err := transfer.ValidateChunkSize(bytes); err != nil {
		return []error{fmt.Errorf("chunk_size: must be a positive multiple of 320 KiB (%d bytes) up to 60 MiB, got %s: %w",
			transfer.ChunkAlignment, s, err)}
	}

	return nil
}

func validateIntRange(name string, v, lo, hi int) []error {
	if v < lo || v > hi {
		return []error{fmt.Errorf("%s: must be between %d and %d, got %d", name, lo, hi, v)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := parseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("timeout: %w", err)}
	}

	if d < minTimeout {
		return []error{fmt.Errorf("timeout: must be >= %s, got %s", minTimeout, n.Timeout)}
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	return d, nil
}
