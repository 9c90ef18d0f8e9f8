package config

import "errors"

var (
	// ErrConfigNotFound is returned when an explicitly named configuration
	// file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	ErrNoCircuit      = errors.New("linear, nonlinear and merged circuits are required")
	ErrNoInitialGuess = errors.New("initial guess is required")
	ErrInvalidMode    = errors.New("invalid fit mode: must be max or neg")
	ErrInvalidCost    = errors.New("invalid cost: must be in (0, 1)")
	ErrInvalidStarts  = errors.New("invalid starts: must be positive")
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")
	ErrInvalidSpread  = errors.New("invalid spread: must be in [0, 1)")
	ErrBoundsLength   = errors.New("lower and upper bounds must match the initial guess")
)
