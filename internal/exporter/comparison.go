package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ejiview/internal/scale"
	"ejiview/pkg/contracts/domain"
)

const (
	comparisonSheet = "Comparison"
	pairsSheet      = "Metrics"
)

// ComparisonHeaders returns the header row of the comparison table
func ComparisonHeaders(rec domain.ComparisonRecord) []string {
	headers := make([]string, 0, len(rec.Metrics)+2)
	headers = append(headers, "Entity", "Source")
	for _, m := range rec.Metrics {
		headers = append(headers, m.Info().Label)
	}
	return headers
}

// ComparisonRecords returns one record per entity, in the same order as
// rec.Table.
func ComparisonRecords(rec domain.ComparisonRecord) [][]string {
	records := make([][]string, 0, len(rec.Table))
	for _, row := range rec.Table {
		record := make([]string, 0, len(row.Values)+2)
		record = append(record, row.Entity.Key, row.Entity.Source)
		for _, v := range row.Values {
			record = append(record, formatValue(v))
		}
		records = append(records, record)
	}
	return records
}

// WriteComparisonCSV renders rec as CSV with a BOM
func WriteComparisonCSV(out io.Writer, rec domain.ComparisonRecord) error {
	return EncodeCSV(out, ComparisonHeaders(rec), ComparisonRecords(rec), true)
}

// TableRecords returns the header and rows of a normalized table, using
// canonical column names so the output normalizes back to the same table
func TableRecords(t *domain.NormalizedTable) ([]string, [][]string) {
	headers := t.Columns()

	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make([]string, 0, len(headers))
		record = append(record, row.EntityKey)
		for _, m := range t.Metrics {
			record = append(record, formatValue(row.Value(m)))
		}
		records = append(records, record)
	}
	return headers, records
}

// WriteTable streams a normalized table to filePath
func (w *CSVWriter) WriteTable(filePath string, t *domain.NormalizedTable) error {
	headers, records := TableRecords(t)

	stream, err := w.CreateStreamWriter(filePath, headers)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write row %q: %w", record[0], err)
		}
	}
	return stream.Close()
}

// WriteComparisonXLSX renders rec as a workbook with two sheets: the
// comparison table, and one row per metric with both values and their
// concern level.
func WriteComparisonXLSX(out io.Writer, rec domain.ComparisonRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheet(f, comparisonSheet, header, toRow(ComparisonHeaders(rec)), comparisonCells(rec)); err != nil {
		return err
	}

	if _, err := f.NewSheet(pairsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	pairHeaders := []any{
		"Metric", "Label",
		rec.EntityA.Key, rec.EntityA.Key + " level",
		rec.EntityB.Key, rec.EntityB.Key + " level",
	}
	if err := writeSheet(f, pairsSheet, header, pairHeaders, pairCells(rec)); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, style int, headers []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write %s headers: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style %s headers: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func comparisonCells(rec domain.ComparisonRecord) [][]any {
	rows := make([][]any, 0, len(rec.Table))
	for _, row := range rec.Table {
		cells := make([]any, 0, len(row.Values)+2)
		cells = append(cells, row.Entity.Key, row.Entity.Source)
		for _, v := range row.Values {
			cells = append(cells, cellValue(v))
		}
		rows = append(rows, cells)
	}
	return rows
}

func pairCells(rec domain.ComparisonRecord) [][]any {
	rows := make([][]any, 0, len(rec.Pairs))
	for _, p := range rec.Pairs {
		rows = append(rows, []any{
			string(p.Metric), p.Metric.Info().Label,
			cellValue(p.A), levelLabel(p.A),
			cellValue(p.B), levelLabel(p.B),
		})
	}
	return rows
}

// cellValue leaves missing values as blank cells
func cellValue(v domain.Value) any {
	if v.IsMissing() {
		return nil
	}
	return v.V
}

func levelLabel(v domain.Value) any {
	band, ok := scale.Classify(v)
	if !ok {
		return nil
	}
	return band.Label
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
