package config

import (
	"fmt"
	"strings"
)

// SourceKind names a raw table backend
type SourceKind string

const (
	SourceCSV      SourceKind = "csv"
	SourceXLSX     SourceKind = "xlsx"
	SourceSQLite   SourceKind = "sqlite"
	SourcePostgres SourceKind = "postgres"
	SourceSheets   SourceKind = "sheets"
)

// SourceConfig describes one raw table: where it lives and how its entity
// key and aggregate rows are recognized
type SourceConfig struct {
	Name            string     `yaml:"name"`
	Kind            SourceKind `yaml:"kind"`
	Path            string     `yaml:"path,omitempty"`
	Sheet           string     `yaml:"sheet,omitempty"`
	DSN             string     `yaml:"dsn,omitempty"`
	Query           string     `yaml:"query,omitempty"`
	SpreadsheetID   string     `yaml:"spreadsheet_id,omitempty"`
	Range           string     `yaml:"range,omitempty"`
	CredentialsFile string     `yaml:"credentials_file,omitempty"`

	EntityKeyColumns []string `yaml:"entity_key_columns,omitempty"`
	LabelColumn      string   `yaml:"label_column,omitempty"`
	AggregateLabels  []string `yaml:"aggregate_labels,omitempty"`
}

// Validate checks the fields each kind requires
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source name is required")
	}

	switch s.Kind {
	case SourceCSV, SourceXLSX:
		if s.Path == "" {
			return fmt.Errorf("source %q: path is required for %s", s.Name, s.Kind)
		}
	case SourceSQLite:
		if s.Path == "" && s.DSN == "" {
			return fmt.Errorf("source %q: path or dsn is required for sqlite", s.Name)
		}
		if s.Query == "" {
			return fmt.Errorf("source %q: query is required for sqlite", s.Name)
		}
	case SourcePostgres:
		if s.DSN == "" || s.Query == "" {
			return fmt.Errorf("source %q: dsn and query are required for postgres", s.Name)
		}
	case SourceSheets:
		if s.SpreadsheetID == "" || s.Range == "" {
			return fmt.Errorf("source %q: spreadsheet_id and range are required for sheets", s.Name)
		}
	default:
		return fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
	}

	if len(s.AggregateLabels) > 0 && s.LabelColumn == "" && len(s.EntityKeyColumns) == 0 {
		return fmt.Errorf("source %q: aggregate_labels need label_column or entity_key_columns", s.Name)
	}

	return nil
}

// KeyCandidates returns the source's entity-key columns, falling back to
// defaults when none are configured
func (s SourceConfig) KeyCandidates(defaults []string) []string {
	if len(s.EntityKeyColumns) > 0 {
		return append([]string(nil), s.EntityKeyColumns...)
	}
	return append([]string(nil), defaults...)
}
