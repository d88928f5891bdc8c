package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridbill/internal/hierarchy"
)

const defaultConnectionsTable = "meter_connections"

// DBTX is the subset of database/sql used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConnectionRepository is a Postgres implementation for explicit meter
// connection edges.
type ConnectionRepository struct {
	db    DBTX
	table string
}

// ConnectionOption configures the repository.
type ConnectionOption func(*ConnectionRepository)

// WithConnectionsTable overrides the default table name.
func WithConnectionsTable(table string) ConnectionOption {
	return func(repo *ConnectionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewConnectionRepository constructs a repository.
func NewConnectionRepository(db DBTX, opts ...ConnectionOption) *ConnectionRepository {
	repo := &ConnectionRepository{db: db, table: defaultConnectionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListBySite loads the explicit parent/child edges of a site.
func (r *ConnectionRepository) ListBySite(ctx context.Context, siteID string) ([]hierarchy.Edge, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("connection repo: nil db")
	}
	if siteID == "" {
		return nil, errors.New("connection repo: empty site id")
	}

	query := fmt.Sprintf(`
SELECT parent_meter_id, child_meter_id
FROM %s
WHERE site_id = $1
ORDER BY parent_meter_id ASC, child_meter_id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []hierarchy.Edge
	for rows.Next() {
		var edge hierarchy.Edge
		if err := rows.Scan(&edge.ParentID, &edge.ChildID); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
