package metering

import "errors"

// MeterType classifies a meter's role on a site.
type MeterType string

const (
	MeterTypeCouncilBulk  MeterType = "council_bulk"
	MeterTypeCheck        MeterType = "check"
	MeterTypeDistribution MeterType = "distribution"
	MeterTypeSolar        MeterType = "solar"
	MeterTypeTenant       MeterType = "tenant"
	MeterTypeOther        MeterType = "other"
)

// IsValid checks if the meter type is one of the supported values.
func (t MeterType) IsValid() bool {
	switch t {
	case MeterTypeCouncilBulk, MeterTypeCheck, MeterTypeDistribution,
		MeterTypeSolar, MeterTypeTenant, MeterTypeOther:
		return true
	default:
		return false
	}
}

var (
	// ErrEmptyMeterID is returned when a meter id is empty.
	ErrEmptyMeterID = errors.New("metering: empty meter id")
	// ErrInvalidMeterType is returned when a meter type is not supported.
	ErrInvalidMeterType = errors.New("metering: invalid meter type")
)

// Meter identifies a physical or virtual metering point.
// Identity is immutable; type and tariff assignment are operator-mutable.
type Meter struct {
	ID                string
	Number            string
	Type              MeterType
	SiteID            string
	SupplyAuthorityID string
	TariffName        string
}

// Validate ensures basic domain invariants for a meter.
func (m Meter) Validate() error {
	if m.ID == "" {
		return ErrEmptyMeterID
	}
	if !m.Type.IsValid() {
		return ErrInvalidMeterType
	}
	return nil
}
