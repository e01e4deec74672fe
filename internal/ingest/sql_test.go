package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ejiview/internal/errors"
	"ejiview/internal/schema"
	"ejiview/pkg/contracts/domain"
)

func createSQLiteTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eji.db")

	db, err := sql.Open(DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE national (Location TEXT, RPL_EJI REAL, RPL_SVM REAL, note BLOB)`,
		`INSERT INTO national VALUES ('United States', 0.5, 0.5, x'6f6b')`,
		`INSERT INTO national VALUES ('New Mexico', 0.71, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestSQLSourceFetch(t *testing.T) {
	path := createSQLiteTable(t)
	src := NewSQLSource("national", DriverSQLite, path, "SELECT * FROM national ORDER BY Location")
	assert.Equal(t, "national", src.Name())

	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Location", "RPL_EJI", "RPL_SVM", "note"}, raw.Columns)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "New Mexico", raw.Rows[0].Cells["Location"])
	assert.Nil(t, raw.Rows[0].Cells["RPL_SVM"])
	assert.Equal(t, "ok", raw.Rows[1].Cells["note"])

	table, err := schema.Normalize(raw, nil, []string{"Location"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Metric{domain.MetricOverall, domain.MetricSocialVulnerability}, table.Metrics)
	assert.Equal(t, []string{"note"}, table.DroppedColumns)
	assert.Equal(t, domain.Number(0.71), table.Rows[0].Value(domain.MetricOverall))
}

func TestSQLSourceErrors(t *testing.T) {
	path := createSQLiteTable(t)
	var appErr *apperrors.AppError

	_, err := NewSQLSource("n", DriverSQLite, path, "SELECT * FROM missing").Fetch(context.Background())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeSource, appErr.Type)

	_, err = NewSQLSource("n", DriverSQLite, path, "SELECT Location, Location FROM national").Fetch(context.Background())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)

	_, err = NewSQLSource("n", "nodriver", path, "SELECT 1").Fetch(context.Background())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeSource, appErr.Type)
}
