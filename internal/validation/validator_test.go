package validation

import (
	"strings"
	"testing"
)

func TestClassifyField(t *testing.T) {
	cases := []struct {
		field string
		want  FieldKind
	}{
		{"kwh", FieldKindKWh},
		{"Import_kWh", FieldKindKWh},
		{"total_kwh_positive", FieldKindKWh},
		{"kva", FieldKindKVA},
		{"Max_kVA", FieldKindKVA},
		{"s", FieldKindKVA},
		{"S", FieldKindKVA},
		{"cost", FieldKindOther},
		{"power_factor", FieldKindOther},
	}
	for _, c := range cases {
		if got := ClassifyField(c.field); got != c.want {
			t.Fatalf("classify(%q): expected %s, got %s", c.field, c.want, got)
		}
	}
}

func TestIsValueCorrupt(t *testing.T) {
	thresholds := DefaultThresholds()

	if result := IsValueCorrupt(15000, "kwh", thresholds); !result.IsCorrupt {
		t.Fatal("expected 15000 kWh to exceed the 10000 ceiling")
	}
	if result := IsValueCorrupt(5000, "kwh", thresholds); result.IsCorrupt {
		t.Fatalf("expected 5000 kWh to pass, got %q", result.Reason)
	}
	if result := IsValueCorrupt(-15000, "kwh", thresholds); !result.IsCorrupt {
		t.Fatal("expected magnitude check to catch -15000 kWh")
	}
	if result := IsValueCorrupt(15000, "kva", thresholds); result.IsCorrupt {
		t.Fatal("expected 15000 kVA under the 50000 ceiling to pass")
	}
	if result := IsValueCorrupt(150000, "cost", thresholds); !result.IsCorrupt {
		t.Fatal("expected other-column ceiling 100000 to flag 150000")
	}
}

func TestIsValueCorruptReason(t *testing.T) {
	result := IsValueCorrupt(15000, "kwh", DefaultThresholds())
	if !strings.Contains(result.Reason, "kwh") || !strings.Contains(result.Reason, "10000") {
		t.Fatalf("expected reason to name the column and threshold, got %q", result.Reason)
	}
}

func TestIsValueCorruptDisabledThreshold(t *testing.T) {
	thresholds := Thresholds{MaxKWh: 0, MaxKVA: 0, MaxOther: 0}
	if result := IsValueCorrupt(1e12, "kwh", thresholds); result.IsCorrupt {
		t.Fatal("a zero threshold disables the check")
	}
}
