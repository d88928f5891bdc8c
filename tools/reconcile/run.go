package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	hierarchyrepo "gridbill/internal/hierarchy/infrastructure/postgres"
	meteringrepo "gridbill/internal/metering/infrastructure/postgres"
	reconapp "gridbill/internal/reconciliation/application"
	"gridbill/internal/reconciliation/interfaces"
	"gridbill/internal/tariff/calculator"
	tariffrepo "gridbill/internal/tariff/infrastructure/postgres"
)

var (
	runSite   string
	runFrom   string
	runTo     string
	runOutDir string
	runFormat string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a reconciliation for a site and write the report",
	Example: `  reconcile run --site site-001 --from 2026-06-01 --to 2026-06-30
  reconcile run --site site-001 --from 2026-06-01 --to 2026-06-30 --format xlsx --out ./reports`,
	RunE: runReconciliation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSite, "site", "", "site id (required)")
	runCmd.Flags().StringVar(&runFrom, "from", "", "range start, YYYY-MM-DD (required)")
	runCmd.Flags().StringVar(&runTo, "to", "", "range end, YYYY-MM-DD (required)")
	runCmd.Flags().StringVar(&runOutDir, "out", "./out", "output directory")
	runCmd.Flags().StringVar(&runFormat, "format", "csv", "output format: csv, xlsx, or pdf")
	runCmd.MarkFlagRequired("site")
	runCmd.MarkFlagRequired("from")
	runCmd.MarkFlagRequired("to")
}

func runReconciliation(_ *cobra.Command, _ []string) error {
	from, err := parseDay(runFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseDay(runTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if to.Before(from) {
		return errors.New("--to must not precede --from")
	}

	tariffRepo := tariffrepo.NewTariffRepository(db)
	readingRepo := meteringrepo.NewReadingRepository(db)
	splitter, err := calculator.NewSplitter(tariffRepo, tariffRepo, readingRepo)
	if err != nil {
		return err
	}
	service, err := reconapp.NewService(
		meteringrepo.NewMeterRepository(db),
		readingRepo,
		hierarchyrepo.NewConnectionRepository(db),
		splitter,
		logger,
	)
	if err != nil {
		return err
	}

	siteCfg := cfg.ForSite(runSite)
	report, err := service.Run(context.Background(), reconapp.RunParams{
		SiteID:       runSite,
		From:         from,
		To:           to,
		Settings:     siteCfg.Settings(),
		Thresholds:   siteCfg.Thresholds,
		IndentLevels: siteCfg.IndentLevels,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}

	switch runFormat {
	case "csv":
		if err := writeMeterRows(runOutDir, report); err != nil {
			return err
		}
		if err := writeTotals(runOutDir, report); err != nil {
			return err
		}
	case "xlsx":
		data, err := interfaces.BuildReconciliationXLSX(report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(runOutDir, "reconciliation.xlsx"), data, 0o644); err != nil {
			return err
		}
	case "pdf":
		data, err := interfaces.BuildReconciliationPDF(report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(runOutDir, "reconciliation.pdf"), data, 0o644); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid format: %s (use csv, xlsx, or pdf)", runFormat)
	}

	for _, warning := range report.CycleWarnings {
		logger.Printf("cycle warning: %s", warning)
	}
	fmt.Printf("Reconciliation outputs written to %s\n", runOutDir)
	return nil
}

func writeMeterRows(outDir string, report *reconapp.Report) error {
	path := filepath.Join(outDir, "meter_rows.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	columns := collectColumns(report)
	header := []string{
		"meter_number",
		"meter_type",
		"depth",
		"rows",
		"total_kwh",
		"total_kwh_positive",
		"total_kwh_negative",
		"rollup_kwh",
	}
	header = append(header, columns...)
	header = append(header,
		"tariff_name",
		"energy_cost",
		"fixed_charges",
		"demand_charges",
		"total_cost",
		"avg_cost_per_kwh",
		"tariff_periods_used",
		"unmatched_readings",
		"corrupt_readings",
		"error",
	)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range report.Rows {
		record := []string{
			row.Meter.Number,
			string(row.Meter.Type),
			strconv.Itoa(row.Depth),
			strconv.Itoa(row.RowCount),
			formatFloat(row.Own.TotalKWh),
			formatFloat(row.Own.TotalKWhPositive),
			formatFloat(row.Own.TotalKWhNegative),
			formatFloat(row.Rollup.TotalKWh),
		}
		for _, column := range columns {
			if value, ok := row.Own.Totals[column]; ok {
				record = append(record, formatFloat(value))
			} else if value, ok := row.Own.MaxValues[column]; ok {
				record = append(record, formatFloat(value))
			} else {
				record = append(record, "")
			}
		}
		if row.Cost != nil {
			record = append(record,
				row.Cost.TariffName,
				formatFloat(row.Cost.EnergyCost),
				formatFloat(row.Cost.FixedCharges),
				formatFloat(row.Cost.DemandCharges),
				formatFloat(row.Cost.TotalCost),
				formatFloat(row.Cost.AvgCostPerKWh),
				strconv.Itoa(len(row.Cost.PeriodsUsed)),
				strconv.Itoa(row.Cost.UnmatchedReadings),
			)
		} else {
			record = append(record, "", "", "", "", "", "", "", "")
		}
		record = append(record,
			strconv.Itoa(len(row.CorruptReadings)),
			row.ErrorMessage,
		)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeTotals(outDir string, report *reconapp.Report) error {
	path := filepath.Join(outDir, "site_totals.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{
		"site_id",
		"from",
		"to",
		"bulk_total",
		"solar_meter_total",
		"grid_negative",
		"other_total",
		"tenant_total",
		"total_supply",
		"recovery_rate",
		"discrepancy",
		"cycle_warnings",
		"generated_at",
	}); err != nil {
		return err
	}

	return writer.Write([]string{
		report.SiteID,
		formatDate(report.From),
		formatDate(report.To),
		formatFloat(report.Totals.BulkTotal),
		formatFloat(report.Totals.SolarMeterTotal),
		formatFloat(report.Totals.GridNegative),
		formatFloat(report.Totals.OtherTotal),
		formatFloat(report.Totals.TenantTotal),
		formatFloat(report.Totals.TotalSupply),
		formatFloat(report.Totals.RecoveryRate),
		formatFloat(report.Totals.Discrepancy),
		strconv.Itoa(len(report.CycleWarnings)),
		report.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// collectColumns is the union of processed column names across all rows so
// every row writes the same cells.
func collectColumns(report *reconapp.Report) []string {
	seen := make(map[string]struct{})
	for _, row := range report.Rows {
		for name := range row.Own.Totals {
			seen[name] = struct{}{}
		}
		for name := range row.Own.MaxValues {
			seen[name] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

func parseDay(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD")
	}
	return t.UTC(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02")
}
