package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridbill/internal/validation"
)

const (
	defaultMetersTable      = "meters"
	defaultReadingsTable    = "meter_readings"
	defaultConnectionsTable = "meter_connections"
)

// Store is a Postgres implementation of the maintenance cleanup queries.
type Store struct {
	db               *sql.DB
	metersTable      string
	readingsTable    string
	connectionsTable string
}

// NewStore constructs a store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:               db,
		metersTable:      defaultMetersTable,
		readingsTable:    defaultReadingsTable,
		connectionsTable: defaultConnectionsTable,
	}
}

// DeleteOrphanConnections removes edges whose parent or child meter no
// longer exists on the site.
func (s *Store) DeleteOrphanConnections(ctx context.Context, siteID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("maintenance store: nil db")
	}

	query := fmt.Sprintf(`
DELETE FROM %s c
WHERE c.site_id = $1
	AND (
		NOT EXISTS (SELECT 1 FROM %s m WHERE m.id = c.parent_meter_id)
		OR NOT EXISTS (SELECT 1 FROM %s m WHERE m.id = c.child_meter_id)
	)`, s.connectionsTable, s.metersTable, s.metersTable)

	result, err := s.db.ExecContext(ctx, query, siteID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteCorruptReadings removes readings whose kWh or kVA magnitude exceeds
// the corruption thresholds.
func (s *Store) DeleteCorruptReadings(ctx context.Context, siteID string, thresholds validation.Thresholds) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("maintenance store: nil db")
	}

	query := fmt.Sprintf(`
DELETE FROM %s r
USING %s m
WHERE r.meter_id = m.id
	AND m.site_id = $1
	AND (ABS(r.kwh_value) > $2 OR (r.kva_value IS NOT NULL AND ABS(r.kva_value) > $3))`,
		s.readingsTable, s.metersTable)

	result, err := s.db.ExecContext(ctx, query, siteID, thresholds.MaxKWh, thresholds.MaxKVA)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
