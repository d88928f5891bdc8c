package validation

import (
	"fmt"
	"strings"
	"time"
)

// Thresholds are per-field magnitude ceilings used to flag corrupted import
// values. Defaults are deliberately generous; operators can tighten them per
// site.
type Thresholds struct {
	MaxKWh   float64 `yaml:"max_kwh"`
	MaxKVA   float64 `yaml:"max_kva"`
	MaxOther float64 `yaml:"max_other"`
}

// DefaultThresholds returns the standard corruption ceilings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxKWh:   10000,
		MaxKVA:   50000,
		MaxOther: 100000,
	}
}

// CheckResult is the outcome of a corruption check.
type CheckResult struct {
	IsCorrupt bool
	Reason    string
}

// FieldKind classifies a column name for threshold selection.
type FieldKind string

const (
	FieldKindKWh   FieldKind = "kwh"
	FieldKindKVA   FieldKind = "kva"
	FieldKindOther FieldKind = "other"
)

// ClassifyField maps a column name to its threshold category using
// case-insensitive substring matching. The bare column "s" is the importer's
// shorthand for apparent power and counts as kVA.
func ClassifyField(field string) FieldKind {
	lower := strings.ToLower(field)
	switch {
	case strings.Contains(lower, "kwh"):
		return FieldKindKWh
	case strings.Contains(lower, "kva"), lower == "s":
		return FieldKindKVA
	default:
		return FieldKindOther
	}
}

// IsValueCorrupt flags a value whose magnitude exceeds the threshold for its
// field category. It never corrects anything; recording corrections is the
// caller's concern.
func IsValueCorrupt(value float64, field string, thresholds Thresholds) CheckResult {
	var limit float64
	switch ClassifyField(field) {
	case FieldKindKWh:
		limit = thresholds.MaxKWh
	case FieldKindKVA:
		limit = thresholds.MaxKVA
	default:
		limit = thresholds.MaxOther
	}

	magnitude := value
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if limit > 0 && magnitude > limit {
		return CheckResult{
			IsCorrupt: true,
			Reason:    fmt.Sprintf("value %.2f in column %q exceeds threshold %.0f", value, field, limit),
		}
	}
	return CheckResult{}
}

// CorrectedReading is an audit record for a reading value a caller replaced
// after a corruption flag.
type CorrectedReading struct {
	MeterID       string
	Timestamp     time.Time
	Field         string
	OriginalValue float64
	CorrectedTo   float64
	Reason        string
	CorrectedAt   time.Time
}
