package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EntityKeyColumn is the canonical name of the entity identifier column.
const EntityKeyColumn = "entity_key"

// RowKind tags a raw row at the data-fetch boundary
type RowKind int

const (
	RowKindUnknown RowKind = iota
	RowKindEntity
	RowKindAggregate
)

func (k RowKind) String() string {
	switch k {
	case RowKindEntity:
		return "entity"
	case RowKindAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// RawRow is one source row. Cells holds nil, strings, numbers, []byte or bool.
type RawRow struct {
	Kind  RowKind        `json:"kind"`
	Cells map[string]any `json:"cells"`
}

// RawTable is a source table as delivered by a data source.
type RawTable struct {
	Source  string   `json:"source"`
	Columns []string `json:"columns"`
	Rows    []RawRow `json:"rows"`
}

// ColumnOrder returns the table's column order. When Columns is empty the
// order is the sorted union of all row keys.
func (t *RawTable) ColumnOrder() []string {
	if len(t.Columns) > 0 {
		out := make([]string, len(t.Columns))
		copy(out, t.Columns)
		return out
	}
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range t.Rows {
		for name := range row.Cells {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	return cols
}

// NormalizedRow is one entity in a normalized table.
type NormalizedRow struct {
	EntityKey string
	Values    map[Metric]Value
}

// Value returns the row's cell for m, missing when absent.
func (r NormalizedRow) Value(m Metric) Value {
	return r.Values[m]
}

// AllMissing reports whether every metric cell of the row is missing.
func (r NormalizedRow) AllMissing() bool {
	for _, v := range r.Values {
		if v.Valid {
			return false
		}
	}
	return true
}

// MarshalJSON flattens the row into {"entity_key": ..., "<METRIC>": ...}.
func (r NormalizedRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Values)+1)
	flat[EntityKeyColumn] = r.EntityKey
	for m, v := range r.Values {
		flat[string(m)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flattened row form.
func (r *NormalizedRow) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	row := NormalizedRow{Values: make(map[Metric]Value, len(flat))}
	for name, raw := range flat {
		if name == EntityKeyColumn {
			if err := json.Unmarshal(raw, &row.EntityKey); err != nil {
				return fmt.Errorf("entity_key: %w", err)
			}
			continue
		}
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		row.Values[Metric(name)] = v
	}
	*r = row
	return nil
}

// NormalizedTable is a table whose columns are canonical metrics plus the
// entity key. Entity keys are unique within a table.
type NormalizedTable struct {
	Source         string          `json:"source"`
	KeyColumn      string          `json:"key_column"`
	Metrics        []Metric        `json:"metrics"`
	Rows           []NormalizedRow `json:"rows"`
	DroppedColumns []string        `json:"dropped_columns,omitempty"`
	ExcludedRows   int             `json:"excluded_rows"`
	AliasVersion   string          `json:"alias_version,omitempty"`
}

// Columns returns the normalized column names, entity key first.
func (t *NormalizedTable) Columns() []string {
	cols := make([]string, 0, len(t.Metrics)+1)
	cols = append(cols, EntityKeyColumn)
	for _, m := range t.Metrics {
		cols = append(cols, string(m))
	}
	return cols
}

// ToRaw converts the table back into raw form using canonical column names.
func (t *NormalizedTable) ToRaw() *RawTable {
	raw := &RawTable{
		Source:  t.Source,
		Columns: t.Columns(),
		Rows:    make([]RawRow, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		cells := make(map[string]any, len(t.Metrics)+1)
		cells[EntityKeyColumn] = row.EntityKey
		for _, m := range t.Metrics {
			if v := row.Value(m); v.Valid {
				cells[string(m)] = v.V
			} else {
				cells[string(m)] = nil
			}
		}
		raw.Rows = append(raw.Rows, RawRow{Kind: RowKindEntity, Cells: cells})
	}
	return raw
}
