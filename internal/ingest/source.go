package ingest

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"ejiview/internal/config"
	apperrors "ejiview/internal/errors"
	"ejiview/pkg/contracts/domain"
)

// Source delivers one raw table.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*domain.RawTable, error)
}

// FromConfig builds the Source described by cfg. Aggregate labels, when
// configured, are applied to every fetched table.
func FromConfig(cfg config.SourceConfig, opts ...option.ClientOption) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("invalid source", err).WithContext("source", cfg.Name)
	}

	var src Source
	switch cfg.Kind {
	case config.SourceCSV:
		src = NewCSVSource(cfg.Name, cfg.Path)
	case config.SourceXLSX:
		src = NewXLSXSource(cfg.Name, cfg.Path, cfg.Sheet)
	case config.SourceSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		src = NewSQLSource(cfg.Name, DriverSQLite, dsn, cfg.Query)
	case config.SourcePostgres:
		src = NewSQLSource(cfg.Name, DriverPostgres, cfg.DSN, cfg.Query)
	case config.SourceSheets:
		sheetOpts := append([]option.ClientOption(nil), opts...)
		if cfg.CredentialsFile != "" {
			sheetOpts = append(sheetOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		src = NewSheetsSource(cfg.Name, cfg.SpreadsheetID, cfg.Range, sheetOpts...)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown source kind %q", cfg.Kind), nil)
	}

	if len(cfg.AggregateLabels) == 0 {
		return src, nil
	}

	column := cfg.LabelColumn
	if column == "" {
		column = cfg.EntityKeyColumns[0]
	}
	return &taggedSource{Source: src, column: column, labels: cfg.AggregateLabels}, nil
}

// taggedSource marks aggregate rows after every fetch
type taggedSource struct {
	Source
	column string
	labels []string
}

func (s *taggedSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	t, err := s.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	TagAggregates(t, s.column, s.labels)
	return t, nil
}

// fromRecords turns a header row plus data rows into a RawTable. Leading
// blank rows are skipped, trailing short rows are padded with nil cells and
// blank data rows are dropped.
func fromRecords(source string, records [][]string) (*domain.RawTable, error) {
	header := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			header = i
			break
		}
	}
	if header < 0 {
		return &domain.RawTable{Source: source, Columns: []string{}, Rows: []domain.RawRow{}}, nil
	}

	columns := make([]string, 0, len(records[header]))
	seen := make(map[string]int, len(records[header]))
	for i, name := range records[header] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("duplicate column %q at positions %d and %d", name, prev+1, i+1), nil,
			).WithContext("source", source)
		}
		seen[name] = i
		columns = append(columns, name)
	}

	rows := make([]domain.RawRow, 0, len(records)-header-1)
	for _, rec := range records[header+1:] {
		if blankRecord(rec) {
			continue
		}
		cells := make(map[string]any, len(columns))
		for i, name := range columns {
			if i < len(rec) {
				cells[name] = rec[i]
			} else {
				cells[name] = nil
			}
		}
		rows = append(rows, domain.RawRow{Cells: cells})
	}

	return &domain.RawTable{Source: source, Columns: columns, Rows: rows}, nil
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
