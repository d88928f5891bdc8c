package tariff

import "time"

// TariffType classifies the customer category a structure applies to.
type TariffType string

const (
	TariffTypeDomestic     TariffType = "domestic"
	TariffTypeCommercial   TariffType = "commercial"
	TariffTypeIndustrial   TariffType = "industrial"
	TariffTypeAgricultural TariffType = "agricultural"
)

// ChargeType identifies the kind of a tariff charge.
// Energy charge amounts are in cents per kWh; basic and demand charge
// amounts are in currency units (per month and per kVA respectively).
type ChargeType string

const (
	ChargeBasicMonthly      ChargeType = "basic_monthly"
	ChargeBasicCharge       ChargeType = "basic_charge"
	ChargeDemandKVA         ChargeType = "demand_kva"
	ChargeDemandHighSeason  ChargeType = "demand_high_season"
	ChargeDemandLowSeason   ChargeType = "demand_low_season"
	ChargeEnergyBothSeasons ChargeType = "energy_both_seasons"
	ChargeEnergyLowSeason   ChargeType = "energy_low_season"
	ChargeEnergyHighSeason  ChargeType = "energy_high_season"
)

// Season is the demand season of a time-of-use period.
type Season string

const (
	SeasonAllYear    Season = "all_year"
	SeasonHighDemand Season = "high_demand"
	SeasonLowDemand  Season = "low_demand"
)

// DayType is the day classification of a time-of-use period.
type DayType string

const (
	DayTypeWeekday  DayType = "weekday"
	DayTypeSaturday DayType = "saturday"
	DayTypeSunday   DayType = "sunday"
	DayTypeWeekend  DayType = "weekend"
	DayTypeAllDays  DayType = "all_days"
)

// TariffBlock is one band of a block (stepped) tariff. KWhTo is the
// exclusive upper bound; nil means unbounded.
type TariffBlock struct {
	BlockNumber int
	KWhFrom     float64
	KWhTo       *float64
	CentsPerKWh float64
}

// TariffCharge is a fixed, demand, or flat energy charge on a structure.
type TariffCharge struct {
	Type   ChargeType
	Amount float64
	Unit   string
}

// TariffTimePeriod is one time-of-use pricing window. The hour range is
// [StartHour, EndHour).
type TariffTimePeriod struct {
	Season      Season
	DayType     DayType
	StartHour   int
	EndHour     int
	CentsPerKWh float64
}

// TariffStructure is one effective-dated version of a named tariff.
// A meter's applicable tariff over a date range may span several versions
// sharing the same name. Blocks take precedence over time-of-use periods,
// which take precedence over flat/seasonal energy charges.
type TariffStructure struct {
	ID                string
	SupplyAuthorityID string
	Name              string
	Type              TariffType
	UsesTOU           bool
	EffectiveFrom     time.Time
	EffectiveTo       *time.Time
	Blocks            []TariffBlock
	Charges           []TariffCharge
	TimePeriods       []TariffTimePeriod
}

// TariffPeriod is one entry of the effective-dated version list for a named
// tariff, as resolved by the tariff store.
type TariffPeriod struct {
	TariffID      string
	TariffName    string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// SeasonForMonth maps a calendar month to its demand season. June through
// August is high demand (Southern-Hemisphere winter); this is a fixed
// convention, not configurable.
func SeasonForMonth(month time.Month) Season {
	if month >= time.June && month <= time.August {
		return SeasonHighDemand
	}
	return SeasonLowDemand
}

// DayTypeFor classifies a timestamp's weekday.
func DayTypeFor(t time.Time) DayType {
	switch t.Weekday() {
	case time.Sunday:
		return DayTypeSunday
	case time.Saturday:
		return DayTypeSaturday
	default:
		return DayTypeWeekday
	}
}

// Matches reports whether the period covers the given season, day type and
// hour. Weekend periods cover both Saturday and Sunday.
func (p TariffTimePeriod) Matches(season Season, dayType DayType, hour int) bool {
	if p.Season != SeasonAllYear && p.Season != season {
		return false
	}
	switch p.DayType {
	case DayTypeAllDays:
	case DayTypeWeekend:
		if dayType != DayTypeSaturday && dayType != DayTypeSunday {
			return false
		}
	default:
		if p.DayType != dayType {
			return false
		}
	}
	return hour >= p.StartHour && hour < p.EndHour
}

// ChargeAmount returns the first charge of the given type, if present.
func (s *TariffStructure) ChargeAmount(t ChargeType) (float64, bool) {
	for _, c := range s.Charges {
		if c.Type == t {
			return c.Amount, true
		}
	}
	return 0, false
}
