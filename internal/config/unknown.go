package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownTopLevelKeys are the valid keys and table names at the root of the
// config file.
var knownTopLevelKeys = []string{"log_level", "network", "remote", "transfers"}

// knownSectionKeys lists the valid keys per table. Each list is sorted for
// deterministic suggestions when two candidates tie on edit distance.
var knownSectionKeys = map[string][]string{
	"remote": {"client_id", "drive_id", "host_name", "site_name", "tenant_id"},
	"transfers": {
		"bandwidth_limit", "chunk_size", "download_workers", "max_depth",
		"max_retries", "resume_uploads", "small_file_threshold",
	},
	"network": {"timeout", "user_agent"},
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		err := unknownKeyError(key)
		if seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key, suggesting the closest valid
// key within the same table when one is near enough.
func unknownKeyError(key toml.Key) error {
	if len(key) >= 2 {
		if known, ok := knownSectionKeys[key[0]]; ok {
			field := key[1]
			if suggestion := closestMatch(field, known); suggestion != "" {
				return fmt.Errorf("unknown config key %q in [%s], did you mean %q?", field, key[0], suggestion)
			}

			return fmt.Errorf("unknown config key %q in [%s]", field, key[0])
		}
	}

	field := key[0]
	if suggestion := closestMatch(field, knownTopLevelKeys); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", field, suggestion)
	}

	return fmt.Errorf("unknown config key %q", field)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization avoids allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
