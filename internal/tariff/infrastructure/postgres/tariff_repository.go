package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	tariff "gridbill/internal/tariff/domain"
)

const (
	defaultTariffsTable     = "tariff_structures"
	defaultBlocksTable      = "tariff_blocks"
	defaultChargesTable     = "tariff_charges"
	defaultTimePeriodsTable = "tariff_time_periods"
)

// DBTX is the subset of database/sql used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TariffRepository is a Postgres implementation for tariff structures. It
// satisfies the calculator's StructureReader and PeriodResolver interfaces.
type TariffRepository struct {
	db               DBTX
	tariffsTable     string
	blocksTable      string
	chargesTable     string
	timePeriodsTable string
}

// TariffOption configures the repository.
type TariffOption func(*TariffRepository)

// WithTariffsTable overrides the structures table name.
func WithTariffsTable(table string) TariffOption {
	return func(repo *TariffRepository) {
		if table != "" {
			repo.tariffsTable = table
		}
	}
}

// NewTariffRepository constructs a repository.
func NewTariffRepository(db DBTX, opts ...TariffOption) *TariffRepository {
	repo := &TariffRepository{
		db:               db,
		tariffsTable:     defaultTariffsTable,
		blocksTable:      defaultBlocksTable,
		chargesTable:     defaultChargesTable,
		timePeriodsTable: defaultTimePeriodsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get loads a tariff structure with its blocks, charges, and time periods.
func (r *TariffRepository) Get(ctx context.Context, tariffID string) (*tariff.TariffStructure, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	if tariffID == "" {
		return nil, errors.New("tariff repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, supply_authority_id, name, tariff_type, uses_tou, effective_from, effective_to
FROM %s
WHERE id = $1
LIMIT 1`, r.tariffsTable)

	var structure tariff.TariffStructure
	var effectiveTo sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, tariffID).Scan(
		&structure.ID,
		&structure.SupplyAuthorityID,
		&structure.Name,
		&structure.Type,
		&structure.UsesTOU,
		&structure.EffectiveFrom,
		&effectiveTo,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tariff.ErrTariffNotFound
		}
		return nil, err
	}
	structure.EffectiveFrom = structure.EffectiveFrom.UTC()
	if effectiveTo.Valid {
		to := effectiveTo.Time.UTC()
		structure.EffectiveTo = &to
	}

	var err error
	if structure.Blocks, err = r.loadBlocks(ctx, tariffID); err != nil {
		return nil, err
	}
	if structure.Charges, err = r.loadCharges(ctx, tariffID); err != nil {
		return nil, err
	}
	if structure.TimePeriods, err = r.loadTimePeriods(ctx, tariffID); err != nil {
		return nil, err
	}
	return &structure, nil
}

func (r *TariffRepository) loadBlocks(ctx context.Context, tariffID string) ([]tariff.TariffBlock, error) {
	query := fmt.Sprintf(`
SELECT block_number, kwh_from, kwh_to, cents_per_kwh
FROM %s
WHERE tariff_id = $1
ORDER BY block_number ASC`, r.blocksTable)

	rows, err := r.db.QueryContext(ctx, query, tariffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []tariff.TariffBlock
	for rows.Next() {
		var block tariff.TariffBlock
		var kwhTo sql.NullFloat64
		if err := rows.Scan(&block.BlockNumber, &block.KWhFrom, &kwhTo, &block.CentsPerKWh); err != nil {
			return nil, err
		}
		if kwhTo.Valid {
			to := kwhTo.Float64
			block.KWhTo = &to
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

func (r *TariffRepository) loadCharges(ctx context.Context, tariffID string) ([]tariff.TariffCharge, error) {
	query := fmt.Sprintf(`
SELECT charge_type, amount, unit
FROM %s
WHERE tariff_id = $1
ORDER BY charge_type ASC`, r.chargesTable)

	rows, err := r.db.QueryContext(ctx, query, tariffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []tariff.TariffCharge
	for rows.Next() {
		var charge tariff.TariffCharge
		if err := rows.Scan(&charge.Type, &charge.Amount, &charge.Unit); err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}
	return charges, rows.Err()
}

func (r *TariffRepository) loadTimePeriods(ctx context.Context, tariffID string) ([]tariff.TariffTimePeriod, error) {
	query := fmt.Sprintf(`
SELECT season, day_type, start_hour, end_hour, cents_per_kwh
FROM %s
WHERE tariff_id = $1
ORDER BY season ASC, day_type ASC, start_hour ASC`, r.timePeriodsTable)

	rows, err := r.db.QueryContext(ctx, query, tariffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []tariff.TariffTimePeriod
	for rows.Next() {
		var period tariff.TariffTimePeriod
		if err := rows.Scan(&period.Season, &period.DayType, &period.StartHour, &period.EndHour, &period.CentsPerKWh); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

// ListApplicablePeriods returns the effective-dated versions of a named
// tariff whose validity intersects [from, to], ordered by effective_from.
func (r *TariffRepository) ListApplicablePeriods(ctx context.Context, supplyAuthorityID, tariffName string, from, to time.Time) ([]tariff.TariffPeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	if supplyAuthorityID == "" || tariffName == "" {
		return nil, errors.New("tariff repo: empty supply authority or tariff name")
	}

	query := fmt.Sprintf(`
SELECT id, name, effective_from, effective_to
FROM %s
WHERE supply_authority_id = $1
	AND name = $2
	AND effective_from <= $4
	AND (effective_to IS NULL OR effective_to >= $3)
ORDER BY effective_from ASC`, r.tariffsTable)

	rows, err := r.db.QueryContext(ctx, query, supplyAuthorityID, tariffName, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []tariff.TariffPeriod
	for rows.Next() {
		var period tariff.TariffPeriod
		var effectiveTo sql.NullTime
		if err := rows.Scan(&period.TariffID, &period.TariffName, &period.EffectiveFrom, &effectiveTo); err != nil {
			return nil, err
		}
		period.EffectiveFrom = period.EffectiveFrom.UTC()
		if effectiveTo.Valid {
			to := effectiveTo.Time.UTC()
			period.EffectiveTo = &to
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}
