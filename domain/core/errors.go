package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input shape errors
	ErrEmptyInput       = errors.New("input data is empty")
	ErrInsufficientRows = errors.New("input data needs at least 2 rows")

	// Identifier errors
	ErrDuplicateIdentifier     = errors.New("identifier column values are not unique")
	ErrInvalidIdentifierColumn = errors.New("invalid identifier column")
	ErrMissingColumn           = errors.New("column not found in data")

	// Sampling errors
	ErrOversizedSample = errors.New("sample size is larger than the sample universe")

	// Treatment configuration errors
	ErrInvalidProbabilities  = errors.New("invalid treatment probabilities")
	ErrInvalidMisfitStrategy = errors.New("unrecognized misfit strategy")
	ErrStratumSentinelInUse  = errors.New("sentinel stratum id collides with a real stratum")
)

// Error constructors with context
func NewMissingColumnError(col string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, col)
}

func NewInvalidProbabilitiesError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidProbabilities, reason)
}

func NewInvalidMisfitStrategyError(strategy string, valid []string) error {
	return fmt.Errorf("%w: %q, must be one of %v", ErrInvalidMisfitStrategy, strategy, valid)
}

func NewOversizedSampleError(size, available int) error {
	return fmt.Errorf("%w: requested %d of %d rows", ErrOversizedSample, size, available)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInsufficientRows) ||
		errors.Is(err, ErrDuplicateIdentifier) ||
		errors.Is(err, ErrInvalidIdentifierColumn) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrOversizedSample)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidProbabilities) ||
		errors.Is(err, ErrInvalidMisfitStrategy)
}
