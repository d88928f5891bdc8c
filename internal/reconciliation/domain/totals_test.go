package reconciliation

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateTotalsBasicSite(t *testing.T) {
	grid := []MeterEnergy{
		{MeterID: "bulk", TotalKWh: 1000, TotalKWhPositive: 1000, SplitComputed: true},
	}
	solar := []MeterEnergy{
		{MeterID: "solar", TotalKWh: 200},
	}
	tenant := []MeterEnergy{
		{MeterID: "shop-a", TotalKWh: 700},
		{MeterID: "shop-b", TotalKWh: 350},
	}

	totals := CalculateTotals(grid, solar, tenant)
	if !almostEqual(totals.BulkTotal, 1000) {
		t.Fatalf("expected bulk 1000, got %f", totals.BulkTotal)
	}
	if !almostEqual(totals.TotalSupply, 1200) {
		t.Fatalf("expected supply 1200, got %f", totals.TotalSupply)
	}
	if !almostEqual(totals.TenantTotal, 1050) {
		t.Fatalf("expected tenant total 1050, got %f", totals.TenantTotal)
	}
	if !almostEqual(totals.RecoveryRate, 1050.0/1200*100) {
		t.Fatalf("expected recovery rate %f, got %f", 1050.0/1200*100, totals.RecoveryRate)
	}
	if !almostEqual(totals.Discrepancy, totals.TotalSupply-totals.TenantTotal) {
		t.Fatalf("discrepancy identity broken: %f", totals.Discrepancy)
	}
}

func TestCalculateTotalsGridClamp(t *testing.T) {
	grid := []MeterEnergy{
		{MeterID: "bulk", TotalKWh: -50},
		{MeterID: "bulk-2", TotalKWh: 300},
	}

	totals := CalculateTotals(grid, nil, nil)
	// A net-negative grid meter contributes nothing to bulk supply.
	if !almostEqual(totals.BulkTotal, 300) {
		t.Fatalf("expected bulk clamped to 300, got %f", totals.BulkTotal)
	}
}

func TestCalculateTotalsSplitPreferred(t *testing.T) {
	grid := []MeterEnergy{
		{MeterID: "bulk", TotalKWh: 880, TotalKWhPositive: 900, TotalKWhNegative: -20, SplitComputed: true},
	}

	totals := CalculateTotals(grid, nil, nil)
	if !almostEqual(totals.BulkTotal, 900) {
		t.Fatalf("expected positive split 900 over net 880, got %f", totals.BulkTotal)
	}
	if !almostEqual(totals.GridNegative, -20) {
		t.Fatalf("expected grid export -20 carried separately, got %f", totals.GridNegative)
	}
	if !almostEqual(totals.OtherTotal, -20) {
		t.Fatalf("expected other total -20, got %f", totals.OtherTotal)
	}
	// Negative other contribution must not reduce supply below bulk.
	if !almostEqual(totals.TotalSupply, 900) {
		t.Fatalf("expected supply 900, got %f", totals.TotalSupply)
	}
}

func TestCalculateTotalsZeroSupply(t *testing.T) {
	tenant := []MeterEnergy{{MeterID: "shop-a", TotalKWh: 500}}

	totals := CalculateTotals(nil, nil, tenant)
	if totals.RecoveryRate != 0 {
		t.Fatalf("expected recovery rate 0 with no supply, got %f", totals.RecoveryRate)
	}
	if !almostEqual(totals.Discrepancy, -500) {
		t.Fatalf("expected discrepancy -500, got %f", totals.Discrepancy)
	}
}

func TestCalculateTotalsSolarNotClamped(t *testing.T) {
	grid := []MeterEnergy{{MeterID: "bulk", TotalKWh: 1000}}
	solar := []MeterEnergy{{MeterID: "solar", TotalKWh: -40}}

	totals := CalculateTotals(grid, solar, nil)
	if !almostEqual(totals.SolarMeterTotal, -40) {
		t.Fatalf("expected solar kept at -40, got %f", totals.SolarMeterTotal)
	}
	if !almostEqual(totals.TotalSupply, 1000) {
		t.Fatalf("expected net-negative other excluded from supply, got %f", totals.TotalSupply)
	}
}
