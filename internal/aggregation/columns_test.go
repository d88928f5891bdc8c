package aggregation

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApplyExcludedColumnAbsent(t *testing.T) {
	rawTotals := map[string]float64{"kwh": 100, "debug_flag": 7}
	settings := Settings{Columns: map[string]ColumnRule{
		"kwh": {Included: true, Operation: OpSum, Factor: 1},
	}}

	result := Apply(rawTotals, nil, 10, settings)
	if _, ok := result.Totals["debug_flag"]; ok {
		t.Fatal("excluded column must not appear in the result")
	}
	if !almostEqual(result.Totals["kwh"], 100) {
		t.Fatalf("expected kwh total 100, got %f", result.Totals["kwh"])
	}
	if !almostEqual(result.TotalKWh, 100) {
		t.Fatalf("debug column leaked into the kWh total: %f", result.TotalKWh)
	}
}

func TestApplyOperations(t *testing.T) {
	rawTotals := map[string]float64{"kwh": 10, "avg_col": 30, "min_col": 12, "kva": 300}
	rawMax := map[string]float64{"kva": 55}
	settings := Settings{Columns: map[string]ColumnRule{
		"kwh":     {Included: true, Operation: OpSum, Factor: 2},
		"avg_col": {Included: true, Operation: OpAverage, Factor: 1},
		"kva":     {Included: true, Operation: OpMax, Factor: 1},
		"min_col": {Included: true, Operation: OpMin, Factor: 1},
	}}

	result := Apply(rawTotals, rawMax, 3, settings)
	if !almostEqual(result.Totals["kwh"], 20) {
		t.Fatalf("expected sum 10 at factor 2 to give 20, got %f", result.Totals["kwh"])
	}
	if !almostEqual(result.Totals["avg_col"], 10) {
		t.Fatalf("expected average 30/3, got %f", result.Totals["avg_col"])
	}
	if !almostEqual(result.Totals["min_col"], 12) {
		t.Fatalf("expected min to fall back to sum, got %f", result.Totals["min_col"])
	}
	if _, ok := result.Totals["kva"]; ok {
		t.Fatal("max column must not land in Totals")
	}
}

func TestApplyMaxColumnRouting(t *testing.T) {
	rawTotals := map[string]float64{"kva": 300, "no_peak": 40}
	rawMax := map[string]float64{"kva": 55}
	settings := Settings{Columns: map[string]ColumnRule{
		"kva":     {Included: true, Operation: OpMax, Factor: 1},
		"no_peak": {Included: true, Operation: OpMax, Factor: 1},
	}}

	result := Apply(rawTotals, rawMax, 5, settings)
	if !almostEqual(result.MaxValues["kva"], 55) {
		t.Fatalf("expected recorded peak 55, got %f", result.MaxValues["kva"])
	}
	if _, ok := result.MaxValues["no_peak"]; ok {
		t.Fatal("max column without a recorded peak must be skipped")
	}
	if !almostEqual(result.TotalKWh, 0) {
		t.Fatalf("max columns must not contribute to the kWh total, got %f", result.TotalKWh)
	}
}

func TestApplyKWhSplit(t *testing.T) {
	rawTotals := map[string]float64{
		"import_kwh": 500,
		"export_kwh": -120,
		"kva_sum":    999,
	}
	settings := Settings{Columns: map[string]ColumnRule{
		"import_kwh": {Included: true, Operation: OpSum, Factor: 1},
		"export_kwh": {Included: true, Operation: OpSum, Factor: 1},
		"kva_sum":    {Included: true, Operation: OpSum, Factor: 1},
	}}

	result := Apply(rawTotals, nil, 10, settings)
	if !almostEqual(result.TotalKWhPositive, 500) {
		t.Fatalf("expected positive split 500, got %f", result.TotalKWhPositive)
	}
	if !almostEqual(result.TotalKWhNegative, -120) {
		t.Fatalf("expected negative split -120, got %f", result.TotalKWhNegative)
	}
	// kVA columns stay in Totals but never enter the energy split.
	if !almostEqual(result.TotalKWh, 380) {
		t.Fatalf("expected net 380 kWh, got %f", result.TotalKWh)
	}
	if !almostEqual(result.Totals["kva_sum"], 999) {
		t.Fatalf("expected kva_sum kept as a plain total, got %f", result.Totals["kva_sum"])
	}
}

func TestApplyDefaultRule(t *testing.T) {
	settings := Settings{Columns: map[string]ColumnRule{
		"kwh": {Included: true},
	}}

	result := Apply(map[string]float64{"kwh": 42}, nil, 1, settings)
	if !almostEqual(result.Totals["kwh"], 42) {
		t.Fatalf("expected default sum at factor 1, got %f", result.Totals["kwh"])
	}
}

func TestSumColumnTotalsCommutative(t *testing.T) {
	a := map[string]float64{"kwh": 10, "cost": 5}
	b := map[string]float64{"kwh": 20}
	c := map[string]float64{"kwh": 30, "cost": -2}

	forward := SumColumnTotals([]map[string]float64{a, b, c})
	backward := SumColumnTotals([]map[string]float64{c, b, a})
	if !almostEqual(forward["kwh"], 60) || !almostEqual(forward["cost"], 3) {
		t.Fatalf("unexpected sums: %v", forward)
	}
	for key := range forward {
		if !almostEqual(forward[key], backward[key]) {
			t.Fatalf("sum depends on child order for %q: %f vs %f", key, forward[key], backward[key])
		}
	}
}

func TestMaxColumnValuesCommutative(t *testing.T) {
	a := map[string]float64{"kva": 40}
	b := map[string]float64{"kva": 55, "other": -3}
	c := map[string]float64{"kva": 12, "other": -8}

	forward := MaxColumnValues([]map[string]float64{a, b, c})
	backward := MaxColumnValues([]map[string]float64{c, b, a})
	if !almostEqual(forward["kva"], 55) {
		t.Fatalf("expected peak 55, got %f", forward["kva"])
	}
	if !almostEqual(forward["other"], -3) {
		t.Fatalf("expected max of negatives -3, got %f", forward["other"])
	}
	for key := range forward {
		if !almostEqual(forward[key], backward[key]) {
			t.Fatalf("max depends on child order for %q", key)
		}
	}
}

func TestSettingsCloneDoesNotAlias(t *testing.T) {
	original := IncludeAll("kwh")
	clone := original.Clone()
	clone.Columns["kwh"] = ColumnRule{Included: false}

	if _, ok := original.Rule("kwh"); !ok {
		t.Fatal("mutating a clone must not affect the original settings")
	}
}
