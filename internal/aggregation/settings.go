package aggregation

// Operation is a per-column reduction applied to raw CSV-derived totals.
type Operation string

const (
	OpSum     Operation = "sum"
	OpAverage Operation = "average"
	OpMax     Operation = "max"
	// OpMin falls back to sum: a true minimum would need per-timestamp
	// values that the upstream aggregate does not retain.
	OpMin Operation = "min"
)

// ColumnRule configures one column for a reconciliation run. A single typed
// rule per column keeps the selection, operation, and factor from drifting
// apart.
type ColumnRule struct {
	Included  bool      `yaml:"included"`
	Operation Operation `yaml:"operation"`
	Factor    float64   `yaml:"factor"`
}

// Settings maps column names to their rules. Columns without a rule are
// excluded from processing.
type Settings struct {
	Columns map[string]ColumnRule `yaml:"columns"`
}

// Rule resolves the effective rule for a column, applying the defaults of
// operation sum and factor 1.
func (s Settings) Rule(column string) (ColumnRule, bool) {
	rule, ok := s.Columns[column]
	if !ok || !rule.Included {
		return ColumnRule{}, false
	}
	if rule.Operation == "" {
		rule.Operation = OpSum
	}
	if rule.Factor == 0 {
		rule.Factor = 1
	}
	return rule, true
}

// Clone deep-copies the settings so a calculation run never aliases
// caller-owned maps.
func (s Settings) Clone() Settings {
	columns := make(map[string]ColumnRule, len(s.Columns))
	for name, rule := range s.Columns {
		columns[name] = rule
	}
	return Settings{Columns: columns}
}

// IncludeAll builds settings that sum every listed column at factor 1.
func IncludeAll(columns ...string) Settings {
	rules := make(map[string]ColumnRule, len(columns))
	for _, name := range columns {
		rules[name] = ColumnRule{Included: true, Operation: OpSum, Factor: 1}
	}
	return Settings{Columns: rules}
}
