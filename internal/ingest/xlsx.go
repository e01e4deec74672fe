package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "ejiview/internal/errors"
	"ejiview/pkg/contracts/domain"
)

// XLSXSource reads one worksheet of an Excel workbook.
type XLSXSource struct {
	name  string
	path  string
	sheet string
}

// NewXLSXSource creates an Excel source. An empty sheet selects the first
// worksheet in the workbook.
func NewXLSXSource(name, path, sheet string) *XLSXSource {
	return &XLSXSource{name: name, path: path, sheet: sheet}
}

// Name returns the source name
func (s *XLSXSource) Name() string { return s.name }

// Fetch opens the workbook and reads the sheet
func (s *XLSXSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, apperrors.NewSourceError(s.name, "failed to open workbook", err).WithContext("path", s.path)
	}
	defer f.Close()

	return readWorkbook(s.name, f, s.sheet)
}

// ReadXLSX parses a workbook from r.
func ReadXLSX(source string, r io.Reader, sheet string) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read workbook", err).WithContext("source", source)
	}
	defer f.Close()

	return readWorkbook(source, f, sheet)
}

func readWorkbook(source string, f *excelize.File, sheet string) (*domain.RawTable, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("source", source)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("source", source)
	}

	slog.Debug("Read worksheet",
		slog.String("source", source),
		slog.String("sheet_name", sheet),
		slog.Int("total_rows", len(rows)))

	return fromRecords(source, rows)
}
