// Package export renders generated reports and inventory snapshots as
// downloadable JSON, CSV and Excel files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const (
	dataSheet    = "Data"
	summarySheet = "Summary"
)

// ContentType is the MIME type served for a report format.
func ContentType(format domain.ReportFormat) string {
	switch format {
	case domain.FormatJSON:
		return "application/json"
	case domain.FormatCSV:
		return "text/csv"
	case domain.FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case domain.FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func Extension(format domain.ReportFormat) string {
	switch format {
	case domain.FormatExcel:
		return ".xlsx"
	default:
		return "." + string(format)
	}
}

// FileName is the download name of a generated report: <code>-YYYY-MM-DD.<ext>.
func FileName(result *domain.ReportResult, format domain.ReportFormat) string {
	return fmt.Sprintf("%s-%s%s", strings.ToLower(result.ReportCode), result.GeneratedAt.Format("2006-01-02"), Extension(format))
}

// Report writes result to w in the given format. PDF is not rendered.
func Report(w io.Writer, format domain.ReportFormat, result *domain.ReportResult) error {
	switch format {
	case domain.FormatJSON:
		return JSON(w, result)
	case domain.FormatCSV:
		return CSV(w, result.Columns, result.Rows)
	case domain.FormatExcel:
		return Excel(w, result)
	default:
		return fmt.Errorf("export %s: %w", format, domain.ErrUnsupportedFormat)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func CSV(w io.Writer, columns []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// Excel writes a workbook with the report rows on a "Data" sheet under a bold
// header row, and the key metrics on a "Summary" sheet.
func Excel(w io.Writer, result *domain.ReportResult) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRows(f, dataSheet, result.Columns, result.Rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]string{
		{"Report", result.ReportName},
		{"Generated", result.GeneratedAt.Format("2006-01-02 15:04")},
		{"Generated By", result.GeneratedBy},
		{"Records", fmt.Sprint(result.RecordCount)},
	}
	for _, m := range result.Summary.KeyMetrics {
		summary = append(summary, []string{m.Label, m.Value})
	}
	if err := writeRows(f, summarySheet, []string{"Metric", "Value"}, summary); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, columns []string, rows [][]string) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}
