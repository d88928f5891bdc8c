package maintenance

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"gridbill/internal/audit"
	"gridbill/internal/validation"
)

type stubStore struct {
	orphans     int64
	corrupt     int64
	orphanErr   error
	corruptErr  error
	gotSite     string
	gotCeilings validation.Thresholds
}

func (s *stubStore) DeleteOrphanConnections(_ context.Context, siteID string) (int64, error) {
	s.gotSite = siteID
	return s.orphans, s.orphanErr
}

func (s *stubStore) DeleteCorruptReadings(_ context.Context, _ string, thresholds validation.Thresholds) (int64, error) {
	s.gotCeilings = thresholds
	return s.corrupt, s.corruptErr
}

type stubAuditLogger struct {
	entries []audit.Entry
}

func (s *stubAuditLogger) Log(_ context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func TestCleanup(t *testing.T) {
	store := &stubStore{orphans: 3, corrupt: 7}
	audits := &stubAuditLogger{}
	service, err := NewService(store, audits, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	report, err := service.Cleanup(context.Background(), "site-1", "ops-user", "admin", validation.Thresholds{})
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if report.OrphanConnections != 3 || report.CorruptReadings != 7 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.gotSite != "site-1" {
		t.Fatalf("expected site-1 passed to store, got %s", store.gotSite)
	}
	// Empty thresholds fall back to the defaults before reaching the store.
	if store.gotCeilings != validation.DefaultThresholds() {
		t.Fatalf("expected default thresholds, got %+v", store.gotCeilings)
	}

	if len(audits.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audits.entries))
	}
	entry := audits.entries[0]
	if entry.Actor != "ops-user" || entry.SiteID != "site-1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestCleanupEmptySite(t *testing.T) {
	service, err := NewService(&stubStore{}, &stubAuditLogger{}, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := service.Cleanup(context.Background(), "", "ops", "admin", validation.Thresholds{}); err == nil {
		t.Fatal("expected error for empty site id")
	}
}

func TestCleanupStoreFailure(t *testing.T) {
	store := &stubStore{orphanErr: errors.New("deadlock detected")}
	service, err := NewService(store, &stubAuditLogger{}, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := service.Cleanup(context.Background(), "site-1", "ops", "admin", validation.Thresholds{}); err == nil {
		t.Fatal("expected store failure to surface")
	}
}
