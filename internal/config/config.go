package config

import (
	"os"
	"strconv"

	"gostrat/internal/errors"
)

// Config represents the complete CLI configuration
type Config struct {
	Assignment AssignmentConfig
	Paths      PathConfig
}

// AssignmentConfig holds assignment defaults applied when flags are omitted
type AssignmentConfig struct {
	Seed           int64
	Treats         int
	MisfitStrategy string
	Parallelism    int64
}

// PathConfig holds file system paths
type PathConfig struct {
	DataFile   string
	OutputFile string
	ReportFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	seed, err := getEnvInt64("GOSTRAT_SEED", 42)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load assignment configuration")
	}
	treats, err := getEnvInt("GOSTRAT_TREATS", 2)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load assignment configuration")
	}
	parallelism, err := getEnvInt64("GOSTRAT_PARALLELISM", 4)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load assignment configuration")
	}
	if treats < 1 {
		return nil, errors.New("INVALID_CONFIG", "GOSTRAT_TREATS must be positive")
	}

	return &Config{
		Assignment: AssignmentConfig{
			Seed:           seed,
			Treats:         treats,
			MisfitStrategy: getEnv("GOSTRAT_MISFIT_STRATEGY", "stratum"),
			Parallelism:    parallelism,
		},
		Paths: PathConfig{
			DataFile:   getEnv("GOSTRAT_DATA_FILE", ""),
			OutputFile: getEnv("GOSTRAT_OUTPUT_FILE", "assignments.csv"),
			ReportFile: getEnv("GOSTRAT_REPORT_FILE", ""),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer for %s", key)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer for %s", key)
	}
	return n, nil
}
