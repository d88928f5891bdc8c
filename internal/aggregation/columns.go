package aggregation

import (
	"sort"

	"gridbill/internal/validation"
)

// Result carries the processed column values for one meter after settings
// are applied. Totals holds summed/averaged columns, MaxValues holds peak
// columns. The kWh split lets callers separate import from export on
// bidirectional meters.
type Result struct {
	Totals           map[string]float64
	MaxValues        map[string]float64
	TotalKWhPositive float64
	TotalKWhNegative float64
	TotalKWh         float64
}

// Apply reduces raw per-column totals to processed values per the settings.
// rawTotals holds per-column sums over the rows, rawMax per-column peaks,
// rowCount the number of source rows. Columns without an included rule are
// skipped; max columns with no recorded peak are skipped entirely since an
// average cannot be retrofitted from a sum.
func Apply(rawTotals, rawMax map[string]float64, rowCount int, settings Settings) Result {
	result := Result{
		Totals:    make(map[string]float64),
		MaxValues: make(map[string]float64),
	}

	columns := make([]string, 0, len(rawTotals))
	for name := range rawTotals {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	for _, column := range columns {
		rule, included := settings.Rule(column)
		if !included {
			continue
		}

		raw := rawTotals[column]
		var value float64
		isMax := false
		switch rule.Operation {
		case OpAverage:
			if rowCount > 0 {
				value = raw / float64(rowCount)
			}
		case OpMax:
			peak, ok := rawMax[column]
			if !ok {
				continue
			}
			value = peak
			isMax = true
		default:
			// sum, and min's documented fallback to sum
			value = raw
		}
		value *= rule.Factor

		if isMax {
			result.MaxValues[column] = value
			continue
		}
		result.Totals[column] = value

		if validation.ClassifyField(column) == validation.FieldKindKVA {
			continue
		}
		if value >= 0 {
			result.TotalKWhPositive += value
		} else {
			result.TotalKWhNegative += value
		}
		result.TotalKWh += value
	}
	return result
}

// SumColumnTotals aggregates child totals upward: per key, the sum across
// all children.
func SumColumnTotals(children []map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, child := range children {
		for column, value := range child {
			out[column] += value
		}
	}
	return out
}

// MaxColumnValues aggregates child peaks upward: per key, the max across
// all children. Summing peaks would overstate coincident demand.
func MaxColumnValues(children []map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, child := range children {
		for column, value := range child {
			if current, ok := out[column]; !ok || value > current {
				out[column] = value
			}
		}
	}
	return out
}
