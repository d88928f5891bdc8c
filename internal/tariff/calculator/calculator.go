package calculator

import (
	"sort"
	"time"

	metering "gridbill/internal/metering/domain"
	tariff "gridbill/internal/tariff/domain"
)

// Calculate computes the cost of consumption against one tariff structure
// over [from, to]. Pricing mechanisms are tried in precedence order:
// time-of-use periods, then blocks, then flat/seasonal energy charges.
// totalKWh may be zero when readings are supplied; it is then derived by
// summing them. maxKVA overrides the peak derived from the readings.
//
// Expected domain failures never panic or return a Go error; they come back
// as a CostResult with HasError set.
func Calculate(structure *tariff.TariffStructure, readings []metering.Reading, totalKWh float64, from, to time.Time, maxKVA *float64) tariff.CostResult {
	if structure == nil {
		return tariff.ErrorResult("", tariff.ErrTariffNotFound.Error())
	}
	if totalKWh == 0 && len(readings) > 0 {
		totalKWh = metering.SumKWh(readings)
	}

	result := tariff.CostResult{
		TariffName: structure.Name,
		TotalKWh:   totalKWh,
	}

	switch {
	case structure.UsesTOU && len(structure.TimePeriods) > 0:
		result.EnergyCost, result.UnmatchedReadings = timeOfUseEnergyCost(structure.TimePeriods, readings)
	case len(structure.Blocks) > 0:
		result.EnergyCost = blockEnergyCost(structure.Blocks, totalKWh)
	case hasEnergyCharge(structure):
		result.EnergyCost = flatEnergyCost(structure, totalKWh, from, to)
	default:
		return tariff.ErrorResult(structure.Name, tariff.ErrNoPricingStructure.Error())
	}

	result.FixedCharges = ProratedBasicCharges(structure.Charges, from, to)
	result.DemandCharges = demandCharge(structure, readings, from, to, maxKVA)
	result.TotalCost = result.EnergyCost + result.FixedCharges + result.DemandCharges
	if totalKWh > 0 {
		result.AvgCostPerKWh = result.TotalCost / totalKWh
	}
	return result
}

// timeOfUseEnergyCost prices each reading against the first matching period.
// Readings matching no period contribute zero; the count is reported so
// callers can surface the gap.
func timeOfUseEnergyCost(periods []tariff.TariffTimePeriod, readings []metering.Reading) (float64, int) {
	var cost float64
	var unmatched int
	for _, r := range readings {
		season := tariff.SeasonForMonth(r.Timestamp.Month())
		dayType := tariff.DayTypeFor(r.Timestamp)
		hour := r.Timestamp.Hour()

		matched := false
		for _, p := range periods {
			if p.Matches(season, dayType, hour) {
				cost += r.KWh * p.CentsPerKWh / 100
				matched = true
				break
			}
		}
		if !matched {
			unmatched++
		}
	}
	return cost, unmatched
}

// blockEnergyCost walks total consumption through the blocks in ascending
// block order, consuming each band at its rate until nothing remains.
func blockEnergyCost(blocks []tariff.TariffBlock, totalKWh float64) float64 {
	ordered := make([]tariff.TariffBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BlockNumber < ordered[j].BlockNumber
	})

	var cost float64
	remaining := totalKWh
	for _, block := range ordered {
		if remaining <= 0 {
			break
		}
		consumed := remaining
		if block.KWhTo != nil {
			size := *block.KWhTo - block.KWhFrom
			if consumed > size {
				consumed = size
			}
		}
		cost += consumed * block.CentsPerKWh / 100
		remaining -= consumed
	}
	return cost
}

func hasEnergyCharge(structure *tariff.TariffStructure) bool {
	for _, c := range structure.Charges {
		switch c.Type {
		case tariff.ChargeEnergyBothSeasons, tariff.ChargeEnergyLowSeason, tariff.ChargeEnergyHighSeason:
			return true
		}
	}
	return false
}

// flatEnergyCost applies a flat or seasonal energy charge to the full
// consumption. Season is classified at range granularity: the range counts
// as high season only when both endpoint months fall in June-August. This is
// intentionally coarse, not a per-day split.
func flatEnergyCost(structure *tariff.TariffStructure, totalKWh float64, from, to time.Time) float64 {
	if rate, ok := structure.ChargeAmount(tariff.ChargeEnergyBothSeasons); ok {
		return totalKWh * rate / 100
	}

	entirelyHigh := tariff.SeasonForMonth(from.Month()) == tariff.SeasonHighDemand &&
		tariff.SeasonForMonth(to.Month()) == tariff.SeasonHighDemand
	high, hasHigh := structure.ChargeAmount(tariff.ChargeEnergyHighSeason)
	low, hasLow := structure.ChargeAmount(tariff.ChargeEnergyLowSeason)

	if entirelyHigh && hasHigh {
		return totalKWh * high / 100
	}
	if hasLow {
		return totalKWh * low / 100
	}
	if hasHigh {
		return totalKWh * high / 100
	}
	return 0
}

// ProratedBasicCharges sums all basic monthly charges and prorates them
// across [from, to] by calendar-month overlap: each intersected month
// contributes monthly * daysInside / daysInMonth. Billing periods commonly
// run mid-month to mid-month, so a flat monthly amount would over-bill.
func ProratedBasicCharges(charges []tariff.TariffCharge, from, to time.Time) float64 {
	var monthly float64
	for _, c := range charges {
		if c.Type == tariff.ChargeBasicMonthly || c.Type == tariff.ChargeBasicCharge {
			monthly += c.Amount
		}
	}
	if monthly == 0 || to.Before(from) {
		return 0
	}

	start := dateOnly(from)
	end := dateOnly(to)

	var total float64
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		monthEnd := cursor.AddDate(0, 1, -1)
		overlapStart := maxDate(start, cursor)
		overlapEnd := minDate(end, monthEnd)
		if !overlapStart.After(overlapEnd) {
			days := int(overlapEnd.Sub(overlapStart).Hours()/24) + 1
			total += monthly * float64(days) / float64(monthEnd.Day())
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return total
}

// demandCharge prices peak kVA against the seasonally selected demand
// charge. Zero kVA yields zero charge, not an error.
func demandCharge(structure *tariff.TariffStructure, readings []metering.Reading, from, to time.Time, maxKVA *float64) float64 {
	var peak float64
	if maxKVA != nil {
		peak = *maxKVA
	} else {
		peak = metering.MaxKVA(readings)
	}
	if peak <= 0 {
		return 0
	}

	highWindow := tariff.SeasonForMonth(from.Month()) == tariff.SeasonHighDemand ||
		tariff.SeasonForMonth(to.Month()) == tariff.SeasonHighDemand

	seasonal := tariff.ChargeDemandLowSeason
	if highWindow {
		seasonal = tariff.ChargeDemandHighSeason
	}
	if rate, ok := structure.ChargeAmount(seasonal); ok {
		return peak * rate
	}
	if rate, ok := structure.ChargeAmount(tariff.ChargeDemandKVA); ok {
		return peak * rate
	}
	return 0
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
