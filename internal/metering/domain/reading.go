package metering

import "time"

// Reading is a single interval reading for a meter. Readings are append-only
// and timestamps need not be evenly spaced. Timestamp uniqueness per meter is
// not enforced here; duplicate handling belongs to the importer.
type Reading struct {
	MeterID   string
	Timestamp time.Time
	KWh       float64
	KVA       *float64
	// Metadata carries any extra imported columns keyed by column name.
	Metadata map[string]float64
}

// SumKWh totals the kWh values of a set of readings.
func SumKWh(readings []Reading) float64 {
	var total float64
	for _, r := range readings {
		total += r.KWh
	}
	return total
}

// MaxKVA returns the largest kVA value present in the readings, or 0 when no
// reading carries one.
func MaxKVA(readings []Reading) float64 {
	var peak float64
	for _, r := range readings {
		if r.KVA != nil && *r.KVA > peak {
			peak = *r.KVA
		}
	}
	return peak
}

// DateRange is the earliest/latest reading window across a set of meters.
type DateRange struct {
	Earliest time.Time
	Latest   time.Time
}
