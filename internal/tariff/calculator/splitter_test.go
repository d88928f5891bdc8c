package calculator

import (
	"context"
	"errors"
	"testing"
	"time"

	metering "gridbill/internal/metering/domain"
	tariff "gridbill/internal/tariff/domain"
)

type stubPeriodResolver struct {
	periods []tariff.TariffPeriod
	err     error
}

func (s stubPeriodResolver) ListApplicablePeriods(_ context.Context, _, _ string, _, _ time.Time) ([]tariff.TariffPeriod, error) {
	return s.periods, s.err
}

type stubStructureReader struct {
	structures map[string]*tariff.TariffStructure
}

func (s stubStructureReader) Get(_ context.Context, tariffID string) (*tariff.TariffStructure, error) {
	structure, ok := s.structures[tariffID]
	if !ok {
		return nil, tariff.ErrTariffNotFound
	}
	return structure, nil
}

type stubReadingLister struct {
	readings []metering.Reading
}

func (s stubReadingLister) ListRange(_ context.Context, _ string, from, to time.Time) ([]metering.Reading, error) {
	var out []metering.Reading
	for _, r := range s.readings {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func flatStructure(id string, centsPerKWh float64) *tariff.TariffStructure {
	return &tariff.TariffStructure{
		ID:   id,
		Name: "Commercial Flat",
		Charges: []tariff.TariffCharge{
			{Type: tariff.ChargeEnergyBothSeasons, Amount: centsPerKWh},
		},
	}
}

func TestSplitterSinglePeriod(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	periods := []tariff.TariffPeriod{
		{TariffID: "v1", TariffName: "Commercial Flat", EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	splitter, err := NewSplitter(
		stubPeriodResolver{periods: periods},
		stubStructureReader{structures: map[string]*tariff.TariffStructure{"v1": flatStructure("v1", 200)}},
		stubReadingLister{},
	)
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	total := 500.0
	result := splitter.CalculateAcrossPeriods(context.Background(), "m-1", "sa-1", "Commercial Flat", from, to, &total, nil)
	if result.HasError {
		t.Fatalf("unexpected error: %s", result.ErrorMessage)
	}
	if result.EnergyCost != 500*200/100.0 {
		t.Fatalf("expected energy cost 1000, got %f", result.EnergyCost)
	}
	if len(result.PeriodsUsed) != 1 {
		t.Fatalf("expected 1 period breakdown, got %d", len(result.PeriodsUsed))
	}
	breakdown := result.PeriodsUsed[0]
	if !breakdown.SegmentFrom.Equal(from) || !breakdown.SegmentTo.Equal(to) {
		t.Fatalf("expected segment to cover the full range, got %v..%v", breakdown.SegmentFrom, breakdown.SegmentTo)
	}
}

func TestSplitterAcrossVersionBoundary(t *testing.T) {
	from := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	boundary := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	v2From := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	periods := []tariff.TariffPeriod{
		{TariffID: "v1", TariffName: "Commercial Flat", EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), EffectiveTo: &boundary},
		{TariffID: "v2", TariffName: "Commercial Flat", EffectiveFrom: v2From},
	}
	readings := []metering.Reading{
		{MeterID: "m-1", Timestamp: time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC), KWh: 100},
		{MeterID: "m-1", Timestamp: time.Date(2025, 4, 5, 12, 0, 0, 0, time.UTC), KWh: 200},
	}
	splitter, err := NewSplitter(
		stubPeriodResolver{periods: periods},
		stubStructureReader{structures: map[string]*tariff.TariffStructure{
			"v1": flatStructure("v1", 100),
			"v2": flatStructure("v2", 150),
		}},
		stubReadingLister{readings: readings},
	)
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	result := splitter.CalculateAcrossPeriods(context.Background(), "m-1", "sa-1", "Commercial Flat", from, to, nil, nil)
	if result.HasError {
		t.Fatalf("unexpected error: %s", result.ErrorMessage)
	}
	// 100 kWh at 100 c/kWh under v1, 200 kWh at 150 c/kWh under v2.
	want := 100*100/100.0 + 200*150/100.0
	if result.EnergyCost != want {
		t.Fatalf("expected energy cost %f, got %f", want, result.EnergyCost)
	}
	if result.TotalKWh != 300 {
		t.Fatalf("expected 300 kWh combined, got %f", result.TotalKWh)
	}
	if len(result.PeriodsUsed) != 2 {
		t.Fatalf("expected 2 period breakdowns, got %d", len(result.PeriodsUsed))
	}
	first, second := result.PeriodsUsed[0], result.PeriodsUsed[1]
	if !first.SegmentFrom.Equal(from) || !first.SegmentTo.Equal(boundary) {
		t.Fatalf("expected first segment %v..%v, got %v..%v", from, boundary, first.SegmentFrom, first.SegmentTo)
	}
	if !second.SegmentFrom.Equal(v2From) || !second.SegmentTo.Equal(to) {
		t.Fatalf("expected second segment %v..%v, got %v..%v", v2From, to, second.SegmentFrom, second.SegmentTo)
	}
	if first.KWh != 100 || second.KWh != 200 {
		t.Fatalf("expected per-segment kWh 100/200, got %f/%f", first.KWh, second.KWh)
	}
}

func TestSplitterNoApplicablePeriods(t *testing.T) {
	splitter, err := NewSplitter(stubPeriodResolver{}, stubStructureReader{}, stubReadingLister{})
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	result := splitter.CalculateAcrossPeriods(context.Background(), "m-1", "sa-1", "Missing",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), nil, nil)
	if !result.HasError {
		t.Fatal("expected error result when no tariff versions apply")
	}
	if result.ErrorMessage != tariff.ErrNoApplicablePeriods.Error() {
		t.Fatalf("expected no-applicable-periods message, got %q", result.ErrorMessage)
	}
}

func TestSplitterPeriodLookupFailure(t *testing.T) {
	splitter, err := NewSplitter(
		stubPeriodResolver{err: errors.New("connection refused")},
		stubStructureReader{},
		stubReadingLister{},
	)
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	result := splitter.CalculateAcrossPeriods(context.Background(), "m-1", "sa-1", "Commercial Flat",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), nil, nil)
	if !result.HasError {
		t.Fatal("expected error result on period lookup failure")
	}
}

func TestSplitterSkipsNonOverlappingVersions(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	futureFrom := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	periods := []tariff.TariffPeriod{
		{TariffID: "v1", TariffName: "Commercial Flat", EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{TariffID: "v2", TariffName: "Commercial Flat", EffectiveFrom: futureFrom},
	}
	readings := []metering.Reading{
		{MeterID: "m-1", Timestamp: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), KWh: 100},
	}
	splitter, err := NewSplitter(
		stubPeriodResolver{periods: periods},
		stubStructureReader{structures: map[string]*tariff.TariffStructure{
			"v1": flatStructure("v1", 100),
			"v2": flatStructure("v2", 999),
		}},
		stubReadingLister{readings: readings},
	)
	if err != nil {
		t.Fatalf("new splitter: %v", err)
	}

	result := splitter.CalculateAcrossPeriods(context.Background(), "m-1", "sa-1", "Commercial Flat", from, to, nil, nil)
	if result.HasError {
		t.Fatalf("unexpected error: %s", result.ErrorMessage)
	}
	if len(result.PeriodsUsed) != 1 {
		t.Fatalf("expected the future version skipped, got %d segments", len(result.PeriodsUsed))
	}
	if result.EnergyCost != 100 {
		t.Fatalf("expected cost from v1 only, got %f", result.EnergyCost)
	}
}
