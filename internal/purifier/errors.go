package purifier

import "errors"

// Domain errors for the purifier package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, purifier.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device ID is not registered.
	ErrNotFound = errors.New("purifier: not found")

	// ErrAlreadyRegistered is returned when registering a device whose ID
	// or address is already in use.
	ErrAlreadyRegistered = errors.New("purifier: already registered")

	// ErrInvalidConfig is returned when device configuration validation fails.
	ErrInvalidConfig = errors.New("purifier: invalid config")

	// ErrInvalidTransport is returned when a transport value is not recognised.
	ErrInvalidTransport = errors.New("purifier: invalid transport")

	// ErrInvalidMode is returned when a mode value is not recognised.
	ErrInvalidMode = errors.New("purifier: invalid mode")

	// ErrInvalidFanPercent is returned when a fan percentage is outside 0-100.
	ErrInvalidFanPercent = errors.New("purifier: invalid fan percent")

	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("purifier: engine closed")
)
