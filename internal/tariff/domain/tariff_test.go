package tariff

import (
	"testing"
	"time"
)

func TestSeasonForMonth(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		want := SeasonLowDemand
		if month >= time.June && month <= time.August {
			want = SeasonHighDemand
		}
		if got := SeasonForMonth(month); got != want {
			t.Fatalf("%s: expected %s, got %s", month, want, got)
		}
	}
}

func TestTimePeriodMatches(t *testing.T) {
	period := TariffTimePeriod{
		Season:    SeasonHighDemand,
		DayType:   DayTypeWeekday,
		StartHour: 6,
		EndHour:   22,
	}

	if !period.Matches(SeasonHighDemand, DayTypeWeekday, 6) {
		t.Fatal("start hour is inclusive")
	}
	if period.Matches(SeasonHighDemand, DayTypeWeekday, 22) {
		t.Fatal("end hour is exclusive")
	}
	if period.Matches(SeasonLowDemand, DayTypeWeekday, 10) {
		t.Fatal("season must match")
	}
	if period.Matches(SeasonHighDemand, DayTypeSaturday, 10) {
		t.Fatal("day type must match")
	}
}

func TestTimePeriodWeekendCoversBothDays(t *testing.T) {
	period := TariffTimePeriod{
		Season:    SeasonAllYear,
		DayType:   DayTypeWeekend,
		StartHour: 0,
		EndHour:   24,
	}

	if !period.Matches(SeasonLowDemand, DayTypeSaturday, 12) {
		t.Fatal("weekend must cover Saturday")
	}
	if !period.Matches(SeasonHighDemand, DayTypeSunday, 12) {
		t.Fatal("weekend must cover Sunday")
	}
	if period.Matches(SeasonLowDemand, DayTypeWeekday, 12) {
		t.Fatal("weekend must not cover weekdays")
	}
}

func TestDayTypeFor(t *testing.T) {
	// 2025-03-08 is a Saturday.
	if got := DayTypeFor(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)); got != DayTypeSaturday {
		t.Fatalf("expected saturday, got %s", got)
	}
	if got := DayTypeFor(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)); got != DayTypeSunday {
		t.Fatalf("expected sunday, got %s", got)
	}
	if got := DayTypeFor(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)); got != DayTypeWeekday {
		t.Fatalf("expected weekday, got %s", got)
	}
}

func TestChargeAmount(t *testing.T) {
	structure := &TariffStructure{
		Charges: []TariffCharge{
			{Type: ChargeBasicMonthly, Amount: 300},
			{Type: ChargeDemandKVA, Amount: 80},
		},
	}
	if amount, ok := structure.ChargeAmount(ChargeBasicMonthly); !ok || amount != 300 {
		t.Fatalf("expected 300, got %f (ok=%v)", amount, ok)
	}
	if _, ok := structure.ChargeAmount(ChargeEnergyHighSeason); ok {
		t.Fatal("expected absent charge type to report false")
	}
}
