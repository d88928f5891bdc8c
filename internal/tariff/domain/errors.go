package tariff

import "errors"

var (
	// ErrTariffNotFound is returned when a referenced tariff does not exist.
	ErrTariffNotFound = errors.New("tariff: not found")
	// ErrNoPricingStructure is returned when a structure carries none of
	// blocks, time-of-use periods, or flat/seasonal energy charges.
	ErrNoPricingStructure = errors.New("tariff: no pricing structure defined")
	// ErrNoApplicablePeriods is returned when no effective tariff version
	// intersects a requested date range.
	ErrNoApplicablePeriods = errors.New("tariff: no applicable tariff periods")
)
