package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"ejiview/pkg/contracts/domain"
)

// StateRawTable is a state-level table using the Mean_* column family.
func StateRawTable() *domain.RawTable {
	return &domain.RawTable{
		Source:  "state",
		Columns: []string{"State", "Mean_EJI", "Mean_EBM", "Mean_SVM", "Mean_HVM"},
		Rows: []domain.RawRow{
			{Cells: map[string]any{"State": "New Mexico", "Mean_EJI": 0.71, "Mean_EBM": 0.52, "Mean_SVM": 0.83, "Mean_HVM": 0.64}},
			{Cells: map[string]any{"State": "Arizona", "Mean_EJI": 0.66, "Mean_EBM": 0.58, "Mean_SVM": 0.71, "Mean_HVM": nil}},
		},
	}
}

// CountyRawTable is a county-level table with a trailing "Count" summary row.
func CountyRawTable() *domain.RawTable {
	return &domain.RawTable{
		Source:  "county",
		Columns: []string{"COUNTY", "Mean_EJI", "Mean_EBM", "RPL_CBM"},
		Rows: []domain.RawRow{
			{Cells: map[string]any{"COUNTY": "Bernalillo County", "Mean_EJI": 0.72, "Mean_EBM": 0.55, "RPL_CBM": "0.40"}},
			{Cells: map[string]any{"COUNTY": "Santa Fe County", "Mean_EJI": 0.41, "Mean_EBM": 0.37, "RPL_CBM": "n/a"}},
			{Cells: map[string]any{"COUNTY": "Taos County", "Mean_EJI": 0.38, "Mean_EBM": -999, "RPL_CBM": 0.22}},
			{Cells: map[string]any{"COUNTY": "Count", "Mean_EJI": 33, "Mean_EBM": 33, "RPL_CBM": 33}},
		},
	}
}

// NationalRawTable is a national comparator table using the RPL_* family.
func NationalRawTable() *domain.RawTable {
	return &domain.RawTable{
		Source:  "national",
		Columns: []string{"Location", "RPL_EJI", "RPL_SVM", "RPL_EJI_CBM"},
		Rows: []domain.RawRow{
			{Cells: map[string]any{"Location": "United States", "RPL_EJI": 0.5, "RPL_SVM": 0.5, "RPL_EJI_CBM": 0.5}},
		},
	}
}

// CountyCSV is CountyRawTable rendered as CSV text.
const CountyCSV = `COUNTY,Mean_EJI,Mean_EBM,RPL_CBM
Bernalillo County,0.72,0.55,0.40
Santa Fe County,0.41,0.37,n/a
Taos County,0.38,-999,0.22
Count,33,33,33
`

// WriteCSV writes records to name under a test temp dir and returns the path.
func WriteCSV(t *testing.T, name string, records [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to name under a test temp dir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
