package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"gridbill/internal/reconciliation/application"
)

// BuildReconciliationPDF renders a reconciliation run as a PDF report.
func BuildReconciliationPDF(report *application.Report) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Reconciliation Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Site: %s", report.SiteID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", report.From.Format("2006-01-02"), report.To.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Bulk supply (kWh): %.2f", report.Totals.BulkTotal))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Solar (kWh): %.2f", report.Totals.SolarMeterTotal))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total supply (kWh): %.2f", report.Totals.TotalSupply))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant billed (kWh): %.2f", report.Totals.TenantTotal))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Recovery rate: %.2f%%", report.Totals.RecoveryRate))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Discrepancy (kWh): %.2f", report.Totals.Discrepancy))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(35, 6, "Meter", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Depth", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Rollup kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Cost", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 6, "Error", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range report.Rows {
		var cost string
		if row.Cost != nil && !row.Cost.HasError {
			cost = fmt.Sprintf("%.2f", row.Cost.TotalCost)
		}
		pdf.CellFormat(35, 6, row.Meter.Number, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(row.Meter.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", row.Depth), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", row.Own.TotalKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", row.Rollup.TotalKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, cost, "1", 0, "R", false, 0, "")
		pdf.CellFormat(90, 6, row.ErrorMessage, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(report.CycleWarnings) > 0 {
		pdf.Ln(4)
		pdf.Cell(0, 6, fmt.Sprintf("Connection cycles detected at: %v", report.CycleWarnings))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReconciliationXLSX renders a reconciliation run as an XLSX workbook
// with a summary sheet and a per-meter sheet.
func BuildReconciliationXLSX(report *application.Report) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	metersSheet := "meters"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(metersSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Reconciliation Report")
	_ = f.SetCellValue(summarySheet, "A3", "Site")
	_ = f.SetCellValue(summarySheet, "B3", report.SiteID)
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", report.From.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", report.To.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Generated")
	_ = f.SetCellValue(summarySheet, "B6", report.GeneratedAt.Format(time.RFC3339))

	_ = f.SetCellValue(summarySheet, "A8", "Bulk supply (kWh)")
	_ = f.SetCellValue(summarySheet, "B8", report.Totals.BulkTotal)
	_ = f.SetCellValue(summarySheet, "A9", "Solar (kWh)")
	_ = f.SetCellValue(summarySheet, "B9", report.Totals.SolarMeterTotal)
	_ = f.SetCellValue(summarySheet, "A10", "Grid export (kWh)")
	_ = f.SetCellValue(summarySheet, "B10", report.Totals.GridNegative)
	_ = f.SetCellValue(summarySheet, "A11", "Other (kWh)")
	_ = f.SetCellValue(summarySheet, "B11", report.Totals.OtherTotal)
	_ = f.SetCellValue(summarySheet, "A12", "Total supply (kWh)")
	_ = f.SetCellValue(summarySheet, "B12", report.Totals.TotalSupply)
	_ = f.SetCellValue(summarySheet, "A13", "Tenant billed (kWh)")
	_ = f.SetCellValue(summarySheet, "B13", report.Totals.TenantTotal)
	_ = f.SetCellValue(summarySheet, "A14", "Recovery rate (%)")
	_ = f.SetCellValue(summarySheet, "B14", report.Totals.RecoveryRate)
	_ = f.SetCellValue(summarySheet, "A15", "Discrepancy (kWh)")
	_ = f.SetCellValue(summarySheet, "B15", report.Totals.Discrepancy)

	headers := []string{"Meter", "Type", "Depth", "kWh", "kWh import", "kWh export", "Rollup kWh", "Cost", "Avg c/kWh", "Error"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(metersSheet, cell, header)
	}
	for i, row := range report.Rows {
		rowIndex := i + 2
		values := []any{
			row.Meter.Number,
			string(row.Meter.Type),
			row.Depth,
			row.Own.TotalKWh,
			row.Own.TotalKWhPositive,
			row.Own.TotalKWhNegative,
			row.Rollup.TotalKWh,
			nil,
			nil,
			row.ErrorMessage,
		}
		if row.Cost != nil && !row.Cost.HasError {
			values[7] = row.Cost.TotalCost
			values[8] = row.Cost.AvgCostPerKWh
		}
		for col, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowIndex)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(metersSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
