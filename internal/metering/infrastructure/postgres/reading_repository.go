package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	metering "gridbill/internal/metering/domain"
)

const defaultReadingsTable = "meter_readings"

// ReadingRepository is a Postgres implementation for meter readings.
type ReadingRepository struct {
	db    DBTX
	table string
}

// ReadingOption configures the repository.
type ReadingOption func(*ReadingRepository)

// WithReadingsTable overrides the default table name.
func WithReadingsTable(table string) ReadingOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db DBTX, opts ...ReadingOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListRange returns a meter's readings within [from, to] ordered by
// timestamp ascending.
func (r *ReadingRepository) ListRange(ctx context.Context, meterID string, from, to time.Time) ([]metering.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if meterID == "" {
		return nil, errors.New("reading repo: empty meter id")
	}
	if from.IsZero() || to.IsZero() {
		return nil, errors.New("reading repo: invalid range")
	}

	query := fmt.Sprintf(`
SELECT meter_id, ts, kwh_value, kva_value, extra_columns
FROM %s
WHERE meter_id = $1
	AND ts >= $2
	AND ts <= $3
ORDER BY ts ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, meterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []metering.Reading
	for rows.Next() {
		var reading metering.Reading
		var kva sql.NullFloat64
		var extra []byte
		if err := rows.Scan(&reading.MeterID, &reading.Timestamp, &reading.KWh, &kva, &extra); err != nil {
			return nil, err
		}
		if kva.Valid {
			value := kva.Float64
			reading.KVA = &value
		}
		if len(extra) > 0 {
			metadata := make(map[string]float64)
			if err := json.Unmarshal(extra, &metadata); err != nil {
				return nil, fmt.Errorf("reading repo: decode extra columns: %w", err)
			}
			reading.Metadata = metadata
		}
		reading.Timestamp = reading.Timestamp.UTC()
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// DateRange returns the earliest and latest reading timestamps across the
// given meters.
func (r *ReadingRepository) DateRange(ctx context.Context, meterIDs []string) (metering.DateRange, error) {
	if r == nil || r.db == nil {
		return metering.DateRange{}, errors.New("reading repo: nil db")
	}
	if len(meterIDs) == 0 {
		return metering.DateRange{}, errors.New("reading repo: no meter ids")
	}

	placeholders := make([]string, len(meterIDs))
	args := make([]any, len(meterIDs))
	for i, id := range meterIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT MIN(ts), MAX(ts)
FROM %s
WHERE meter_id IN (%s)`, r.table, strings.Join(placeholders, ","))

	var earliest, latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&earliest, &latest); err != nil {
		return metering.DateRange{}, err
	}
	if !earliest.Valid || !latest.Valid {
		return metering.DateRange{}, nil
	}
	return metering.DateRange{
		Earliest: earliest.Time.UTC(),
		Latest:   latest.Time.UTC(),
	}, nil
}
