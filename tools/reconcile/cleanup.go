package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gridbill/internal/audit"
	"gridbill/internal/maintenance"
	maintenancerepo "gridbill/internal/maintenance/infrastructure/postgres"
)

var (
	cleanupSite  string
	cleanupActor string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete orphaned connections and corrupt readings for a site",
	Long: `Removes connection edges whose parent or child meter no longer exists,
and readings whose values exceed the site's corruption thresholds. The run
is written to the audit log.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().StringVar(&cleanupSite, "site", "", "site id (required)")
	cleanupCmd.Flags().StringVar(&cleanupActor, "actor", "cli", "actor recorded in the audit log")
	cleanupCmd.MarkFlagRequired("site")
}

func runCleanup(_ *cobra.Command, _ []string) error {
	service, err := maintenance.NewService(maintenancerepo.NewStore(db), audit.NewRepository(db), logger)
	if err != nil {
		return err
	}

	thresholds := cfg.ForSite(cleanupSite).Thresholds
	report, err := service.Cleanup(context.Background(), cleanupSite, cleanupActor, "admin", thresholds)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d orphan connections and %d corrupt readings for %s\n",
		report.OrphanConnections, report.CorruptReadings, report.SiteID)
	return nil
}
