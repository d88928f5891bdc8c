package tariff

import "time"

// PeriodBreakdown records one tariff version's share of a multi-period cost
// calculation.
type PeriodBreakdown struct {
	TariffID      string
	TariffName    string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	SegmentFrom   time.Time
	SegmentTo     time.Time
	KWh           float64
	Cost          float64
}

// CostResult is the outcome of a cost calculation. Expected domain failures
// (missing tariff, no pricing structure, fetch errors) are reported through
// HasError/ErrorMessage rather than an error return, so callers can tell
// "zero cost because nothing to bill" from "could not calculate".
type CostResult struct {
	TariffName    string
	TotalKWh      float64
	EnergyCost    float64
	FixedCharges  float64
	DemandCharges float64
	TotalCost     float64
	AvgCostPerKWh float64
	// UnmatchedReadings counts time-of-use readings that matched no pricing
	// period and therefore contributed zero energy cost.
	UnmatchedReadings int
	HasError          bool
	ErrorMessage      string
	// PeriodsUsed is populated when the requested range spans more than one
	// effective tariff version. The same peak kVA is applied to every
	// segment's demand charge, so demand may be counted once per segment.
	PeriodsUsed []PeriodBreakdown
}

// ErrorResult builds a failed CostResult carrying the given message.
func ErrorResult(tariffName, message string) CostResult {
	return CostResult{
		TariffName:   tariffName,
		HasError:     true,
		ErrorMessage: message,
	}
}
