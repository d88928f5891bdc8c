package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	metering "gridbill/internal/metering/domain"
	tariff "gridbill/internal/tariff/domain"
)

// PeriodResolver lists the effective-dated versions of a named tariff that
// intersect a date range, ordered by effective_from.
type PeriodResolver interface {
	ListApplicablePeriods(ctx context.Context, supplyAuthorityID, tariffName string, from, to time.Time) ([]tariff.TariffPeriod, error)
}

// StructureReader loads a full tariff structure by id.
type StructureReader interface {
	Get(ctx context.Context, tariffID string) (*tariff.TariffStructure, error)
}

// ReadingLister fetches readings for a meter within [from, to].
type ReadingLister interface {
	ListRange(ctx context.Context, meterID string, from, to time.Time) ([]metering.Reading, error)
}

// Splitter computes cost across date ranges that may straddle multiple
// effective tariff versions, partitioning the range and summing per-segment
// costs.
type Splitter struct {
	periods  PeriodResolver
	tariffs  StructureReader
	readings ReadingLister
}

// NewSplitter constructs a Splitter.
func NewSplitter(periods PeriodResolver, tariffs StructureReader, readings ReadingLister) (*Splitter, error) {
	if periods == nil {
		return nil, errors.New("calculator: nil period resolver")
	}
	if tariffs == nil {
		return nil, errors.New("calculator: nil structure reader")
	}
	if readings == nil {
		return nil, errors.New("calculator: nil reading lister")
	}
	return &Splitter{periods: periods, tariffs: tariffs, readings: readings}, nil
}

// CalculateAcrossPeriods resolves the tariff versions applicable to
// [from, to] and prices each segment of the range against its version.
// When totalKWh is nil, segment consumption is summed from readings. The
// same maxKVA is passed to every segment; demand charges are therefore not
// prorated across segments.
func (s *Splitter) CalculateAcrossPeriods(ctx context.Context, meterID, supplyAuthorityID, tariffName string, from, to time.Time, totalKWh, maxKVA *float64) tariff.CostResult {
	periods, err := s.periods.ListApplicablePeriods(ctx, supplyAuthorityID, tariffName, from, to)
	if err != nil {
		return tariff.ErrorResult(tariffName, fmt.Sprintf("tariff period lookup failed: %v", err))
	}
	if len(periods) == 0 {
		return tariff.ErrorResult(tariffName, tariff.ErrNoApplicablePeriods.Error())
	}

	if len(periods) == 1 {
		return s.calculateSingle(ctx, meterID, periods[0], from, to, totalKWh, maxKVA)
	}
	return s.calculateSegments(ctx, meterID, periods, from, to, maxKVA)
}

func (s *Splitter) calculateSingle(ctx context.Context, meterID string, period tariff.TariffPeriod, from, to time.Time, totalKWh, maxKVA *float64) tariff.CostResult {
	structure, err := s.tariffs.Get(ctx, period.TariffID)
	if err != nil {
		return tariff.ErrorResult(period.TariffName, fmt.Sprintf("tariff fetch failed: %v", err))
	}
	readings, err := s.readings.ListRange(ctx, meterID, from, to)
	if err != nil {
		return tariff.ErrorResult(period.TariffName, fmt.Sprintf("reading fetch failed: %v", err))
	}

	var kwh float64
	if totalKWh != nil {
		kwh = *totalKWh
	}
	result := Calculate(structure, readings, kwh, from, to, maxKVA)
	if result.HasError {
		return result
	}
	result.PeriodsUsed = []tariff.PeriodBreakdown{{
		TariffID:      period.TariffID,
		TariffName:    period.TariffName,
		EffectiveFrom: period.EffectiveFrom,
		EffectiveTo:   period.EffectiveTo,
		SegmentFrom:   from,
		SegmentTo:     to,
		KWh:           result.TotalKWh,
		Cost:          result.TotalCost,
	}}
	return result
}

func (s *Splitter) calculateSegments(ctx context.Context, meterID string, periods []tariff.TariffPeriod, from, to time.Time, maxKVA *float64) tariff.CostResult {
	combined := tariff.CostResult{TariffName: periods[0].TariffName}

	for _, period := range periods {
		segFrom := from
		if period.EffectiveFrom.After(segFrom) {
			segFrom = period.EffectiveFrom
		}
		segTo := to
		if period.EffectiveTo != nil && period.EffectiveTo.Before(segTo) {
			segTo = *period.EffectiveTo
		}
		if segFrom.After(segTo) {
			continue
		}

		structure, err := s.tariffs.Get(ctx, period.TariffID)
		if err != nil {
			return tariff.ErrorResult(period.TariffName, fmt.Sprintf("tariff fetch failed: %v", err))
		}
		readings, err := s.readings.ListRange(ctx, meterID, segFrom, segTo)
		if err != nil {
			return tariff.ErrorResult(period.TariffName, fmt.Sprintf("reading fetch failed: %v", err))
		}

		segment := Calculate(structure, readings, metering.SumKWh(readings), segFrom, segTo, maxKVA)
		if segment.HasError {
			return segment
		}

		combined.TotalKWh += segment.TotalKWh
		combined.EnergyCost += segment.EnergyCost
		combined.FixedCharges += segment.FixedCharges
		combined.DemandCharges += segment.DemandCharges
		combined.UnmatchedReadings += segment.UnmatchedReadings
		combined.PeriodsUsed = append(combined.PeriodsUsed, tariff.PeriodBreakdown{
			TariffID:      period.TariffID,
			TariffName:    period.TariffName,
			EffectiveFrom: period.EffectiveFrom,
			EffectiveTo:   period.EffectiveTo,
			SegmentFrom:   segFrom,
			SegmentTo:     segTo,
			KWh:           segment.TotalKWh,
			Cost:          segment.TotalCost,
		})
	}

	if len(combined.PeriodsUsed) == 0 {
		return tariff.ErrorResult(combined.TariffName, tariff.ErrNoApplicablePeriods.Error())
	}

	combined.TotalCost = combined.EnergyCost + combined.FixedCharges + combined.DemandCharges
	if combined.TotalKWh > 0 {
		combined.AvgCostPerKWh = combined.TotalCost / combined.TotalKWh
	}
	return combined
}
