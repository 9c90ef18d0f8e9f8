package gonleis

import "errors"

var (
	// ErrReservedName is returned when registering an element under a name
	// used by a composition operator.
	ErrReservedName = errors.New("reserved element name")
	// ErrElementExists is returned when registering an existing element
	// without overwrite.
	ErrElementExists = errors.New("element already exists")
	// ErrUnknownElement is returned for an element name missing from the registry.
	ErrUnknownElement = errors.New("unknown element")
	// ErrArity is returned when a parameter vector has the wrong length.
	ErrArity = errors.New("wrong number of parameters")
	// ErrInvalidValue is returned for NaN or infinite parameters and frequencies.
	ErrInvalidValue = errors.New("invalid value")
	// ErrSyntax is returned for a malformed circuit description.
	ErrSyntax = errors.New("circuit syntax error")
	// ErrParameterCount is returned when a parameter vector does not match
	// the slots of a circuit.
	ErrParameterCount = errors.New("parameter count mismatch")

	ErrBounds             = errors.New("invalid bounds")
	ErrBoundNormalization = errors.New("bounds cannot be normalized")
	ErrInfeasibleGuess    = errors.New("initial guess outside bounds")
	ErrCost               = errors.New("cost weight must be in (0, 1)")
	ErrNoData             = errors.New("no data points")
	ErrOptimizer          = errors.New("optimizer failed")
)
