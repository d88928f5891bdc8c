package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	metering "gridbill/internal/metering/domain"
)

const defaultMetersTable = "meters"

// MeterRepository is a Postgres implementation for meters.
type MeterRepository struct {
	db    DBTX
	table string
}

// MeterOption configures the repository.
type MeterOption func(*MeterRepository)

// WithMetersTable overrides the default table name.
func WithMetersTable(table string) MeterOption {
	return func(repo *MeterRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewMeterRepository constructs a repository.
func NewMeterRepository(db DBTX, opts ...MeterOption) *MeterRepository {
	repo := &MeterRepository{db: db, table: defaultMetersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get loads a meter by id.
func (r *MeterRepository) Get(ctx context.Context, id string) (*metering.Meter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("meter repo: nil db")
	}
	if id == "" {
		return nil, errors.New("meter repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, meter_number, meter_type, site_id, supply_authority_id, tariff_name
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var meter metering.Meter
	var tariffName sql.NullString
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&meter.ID,
		&meter.Number,
		&meter.Type,
		&meter.SiteID,
		&meter.SupplyAuthorityID,
		&tariffName,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	meter.TariffName = tariffName.String
	return &meter, nil
}

// ListBySite loads all meters of a site ordered by meter number.
func (r *MeterRepository) ListBySite(ctx context.Context, siteID string) ([]metering.Meter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("meter repo: nil db")
	}
	if siteID == "" {
		return nil, errors.New("meter repo: empty site id")
	}

	query := fmt.Sprintf(`
SELECT id, meter_number, meter_type, site_id, supply_authority_id, tariff_name
FROM %s
WHERE site_id = $1
ORDER BY meter_number ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []metering.Meter
	for rows.Next() {
		var meter metering.Meter
		var tariffName sql.NullString
		if err := rows.Scan(
			&meter.ID,
			&meter.Number,
			&meter.Type,
			&meter.SiteID,
			&meter.SupplyAuthorityID,
			&tariffName,
		); err != nil {
			return nil, err
		}
		meter.TariffName = tariffName.String
		meters = append(meters, meter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meters, nil
}
