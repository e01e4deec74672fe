package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	apperrors "ejiview/internal/errors"
	"ejiview/pkg/contracts/domain"
)

// CSVSource reads a CSV file from disk on every fetch.
type CSVSource struct {
	name string
	path string
}

// NewCSVSource creates a CSV source
func NewCSVSource(name, path string) *CSVSource {
	return &CSVSource{name: name, path: path}
}

// Name returns the source name
func (s *CSVSource) Name() string { return s.name }

// Fetch opens and parses the file
func (s *CSVSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.NewSourceError(s.name, "failed to open csv", err).WithContext("path", s.path)
	}
	defer f.Close()

	return ReadCSV(s.name, f)
}

// ReadCSV parses CSV text with a header row into a RawTable.
func ReadCSV(source string, r io.Reader) (*domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse csv", err).WithContext("source", source)
	}
	return fromRecords(source, records)
}
