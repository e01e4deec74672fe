package ingest

import (
	"fmt"

	"ejiview/internal/schema"
	"ejiview/pkg/contracts/domain"
)

// TagAggregates marks rows whose label column matches one of labels as
// aggregate rows. Matching folds case, width and whitespace. Rows already
// tagged and rows that do not match are left alone.
func TagAggregates(t *domain.RawTable, column string, labels []string) int {
	if t == nil || column == "" || len(labels) == 0 {
		return 0
	}

	folded := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		folded[schema.FoldName(l)] = struct{}{}
	}

	tagged := 0
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.Kind != domain.RowKindUnknown {
			continue
		}
		cell, ok := row.Cells[column]
		if !ok || cell == nil {
			continue
		}
		if _, hit := folded[schema.FoldName(fmt.Sprint(cell))]; hit {
			row.Kind = domain.RowKindAggregate
			tagged++
		}
	}
	return tagged
}
