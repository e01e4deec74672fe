package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	apperrors "ejiview/internal/errors"
	"ejiview/pkg/contracts/domain"
)

// database/sql driver names registered by the blank imports above
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLSource runs one query and turns its result set into a raw table.
type SQLSource struct {
	name   string
	driver string
	dsn    string
	query  string
}

// NewSQLSource creates a SQL source for driver
func NewSQLSource(name, driver, dsn, query string) *SQLSource {
	return &SQLSource{name: name, driver: driver, dsn: dsn, query: query}
}

// Name returns the source name
func (s *SQLSource) Name() string { return s.name }

// Fetch opens a short-lived connection pool, runs the query and closes it
func (s *SQLSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, apperrors.NewSourceError(s.name, "failed to open database", err).WithContext("driver", s.driver)
	}
	defer db.Close()

	return QueryTable(ctx, s.name, db, s.query)
}

// QueryTable runs query on db and returns the rows keyed by column name.
// []byte values are returned as strings.
func QueryTable(ctx context.Context, source string, db *sql.DB, query string) (*domain.RawTable, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewSourceError(source, "query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewSourceError(source, "failed to read columns", err)
	}

	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, apperrors.NewParsingError(fmt.Sprintf("duplicate column %q in result set", c), nil).
				WithContext("source", source)
		}
		seen[c] = struct{}{}
	}

	table := &domain.RawTable{Source: source, Columns: columns, Rows: []domain.RawRow{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.NewParsingError("failed to scan row", err).WithContext("source", source)
		}

		cells := make(map[string]any, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				cells[name] = string(b)
				continue
			}
			cells[name] = values[i]
		}
		table.Rows = append(table.Rows, domain.RawRow{Cells: cells})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSourceError(source, "row iteration failed", err)
	}

	return table, nil
}
