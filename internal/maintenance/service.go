package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"gridbill/internal/audit"
	"gridbill/internal/observability/metrics"
	"gridbill/internal/validation"
)

// Store executes the destructive cleanup queries.
type Store interface {
	DeleteOrphanConnections(ctx context.Context, siteID string) (int64, error)
	DeleteCorruptReadings(ctx context.Context, siteID string, thresholds validation.Thresholds) (int64, error)
}

// Report summarizes one cleanup run.
type Report struct {
	SiteID            string
	OrphanConnections int64
	CorruptReadings   int64
}

// Service runs explicit, operator-invoked data cleanups. These used to be
// ambient debug hooks; they are now an admin-only command with an audit
// trail.
type Service struct {
	store  Store
	audits audit.Logger
	logger *log.Logger
}

// NewService constructs a maintenance service.
func NewService(store Store, audits audit.Logger, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("maintenance: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, audits: audits, logger: logger}, nil
}

// Cleanup removes orphaned connection edges and readings over the
// corruption thresholds for a site, and writes an audit entry.
func (s *Service) Cleanup(ctx context.Context, siteID, actor, role string, thresholds validation.Thresholds) (Report, error) {
	if siteID == "" {
		return Report{}, errors.New("maintenance: empty site id")
	}
	if thresholds == (validation.Thresholds{}) {
		thresholds = validation.DefaultThresholds()
	}

	report := Report{SiteID: siteID}

	orphans, err := s.store.DeleteOrphanConnections(ctx, siteID)
	if err != nil {
		metrics.IncCleanup("orphan_connections", "error")
		return report, err
	}
	report.OrphanConnections = orphans
	metrics.IncCleanup("orphan_connections", "success")

	corrupt, err := s.store.DeleteCorruptReadings(ctx, siteID, thresholds)
	if err != nil {
		metrics.IncCleanup("corrupt_readings", "error")
		return report, err
	}
	report.CorruptReadings = corrupt
	metrics.IncCleanup("corrupt_readings", "success")

	s.logger.Printf("maintenance cleanup site=%s orphans=%d corrupt=%d", siteID, orphans, corrupt)

	if s.audits != nil {
		metadata, _ := json.Marshal(report)
		if err := s.audits.Log(ctx, audit.Entry{
			Actor:        actor,
			Role:         role,
			Action:       "maintenance.cleanup",
			ResourceType: "site",
			ResourceID:   siteID,
			SiteID:       siteID,
			Metadata:     metadata,
		}); err != nil {
			s.logger.Printf("maintenance audit write failed: %v", err)
		}
	}
	return report, nil
}
