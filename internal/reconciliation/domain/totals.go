package reconciliation

// MeterEnergy is one meter's aggregated energy contribution to the site
// reconciliation. SplitComputed reports whether the positive/negative kWh
// split was produced by the column engine; without it the net total is used.
type MeterEnergy struct {
	MeterID          string
	TotalKWh         float64
	TotalKWhPositive float64
	TotalKWhNegative float64
	SplitComputed    bool
}

// Totals is the site-level supply/recovery summary.
type Totals struct {
	BulkTotal       float64
	SolarMeterTotal float64
	GridNegative    float64
	OtherTotal      float64
	TenantTotal     float64
	TotalSupply     float64
	RecoveryRate    float64
	Discrepancy     float64
}

// CalculateTotals combines grid-supply, solar, and tenant aggregates into
// the supply/recovery-rate report.
//
// Grid bulk supply never contributes a negative amount: each grid meter adds
// its positive kWh when the split was computed, otherwise its net total
// clamped at zero. Solar is not clamped (net metering can be negative), and
// grid export is carried separately so a net-negative "other" contribution
// cannot pull total supply below bulk alone.
func CalculateTotals(grid, solar, tenant []MeterEnergy) Totals {
	var totals Totals

	for _, m := range grid {
		if m.SplitComputed && m.TotalKWhPositive > 0 {
			totals.BulkTotal += m.TotalKWhPositive
		} else if m.TotalKWh > 0 {
			totals.BulkTotal += m.TotalKWh
		}
		totals.GridNegative += m.TotalKWhNegative
	}
	for _, m := range solar {
		totals.SolarMeterTotal += m.TotalKWh
	}
	for _, m := range tenant {
		totals.TenantTotal += m.TotalKWh
	}

	totals.OtherTotal = totals.SolarMeterTotal + totals.GridNegative
	totals.TotalSupply = totals.BulkTotal
	if totals.OtherTotal > 0 {
		totals.TotalSupply += totals.OtherTotal
	}

	if totals.TotalSupply > 0 {
		totals.RecoveryRate = totals.TenantTotal / totals.TotalSupply * 100
	}
	totals.Discrepancy = totals.TotalSupply - totals.TenantTotal
	return totals
}
