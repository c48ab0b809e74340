package parking

import "errors"

var (
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidEntryPoint = errors.New("invalid entry point")
	ErrAlreadyParked     = errors.New("vehicle already parked")
	ErrNoSlotAvailable   = errors.New("no slots available")
	ErrVehicleNotExists  = errors.New("vehicle not parked")

	// Layout and timestamp checks performed before any state is touched.
	ErrInvalidLayout = errors.New("invalid parking layout")
	ErrInvalidTime   = errors.New("invalid time")

	ErrAlreadyInitialized = errors.New("parking lot already initialized")

	// ErrBilling signals a session history the calculator cannot price.
	ErrBilling = errors.New("cannot compute charge")
)
