package ingest

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "ejiview/internal/errors"
	"ejiview/pkg/contracts/domain"
)

// SheetsSource reads a range from a Google spreadsheet.
type SheetsSource struct {
	name          string
	spreadsheetID string
	readRange     string
	opts          []option.ClientOption
}

// NewSheetsSource creates a Google Sheets source. opts are passed to
// sheets.NewService on every fetch (credentials, endpoint, http client).
func NewSheetsSource(name, spreadsheetID, readRange string, opts ...option.ClientOption) *SheetsSource {
	return &SheetsSource{
		name:          name,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		opts:          opts,
	}
}

// Name returns the source name
func (s *SheetsSource) Name() string { return s.name }

// Fetch calls spreadsheets.values.get with formatted values
func (s *SheetsSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	svc, err := sheets.NewService(ctx, s.opts...)
	if err != nil {
		return nil, apperrors.NewSourceError(s.name, "failed to create sheets service", err)
	}

	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperrors.NewSourceError(s.name, "failed to read from sheets", err).
			WithContext("spreadsheet_id", s.spreadsheetID).
			WithContext("range", s.readRange)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rec := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rec[j] = fmt.Sprint(cell)
			}
		}
		records[i] = rec
	}
	return fromRecords(s.name, records)
}
