package dedup

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultThreshold is the similarity a prior record must strictly exceed for a
// new record to be flagged duplicate.
const DefaultThreshold = 0.9

// Config holds configuration for duplicate detection.
type Config struct {
	// Threshold is exclusive: similarity == Threshold is not a duplicate.
	Threshold float64
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1] (got %.2f)", c.Threshold)
	}
	return nil
}

// ConfigFromEnv reads DEDUP_SIMILARITY_THRESHOLD, falling back to defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv("DEDUP_SIMILARITY_THRESHOLD"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid value for DEDUP_SIMILARITY_THRESHOLD: %w", err)
		}
		cfg.Threshold = parsed
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}
