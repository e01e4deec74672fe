// Package ingest fetches raw EJI tables from the configured backends.
//
// Every backend yields a *domain.RawTable whose first row supplied the column
// names. Cells are left as the backend delivered them (strings for CSV, XLSX
// and Sheets; driver values for SQL); numeric coercion and the no-data
// sentinel are handled later by the schema normalizer.
//
// Supported kinds:
//
//	csv       encoding/csv, UTF-8 with or without BOM
//	xlsx      github.com/xuri/excelize/v2, first sheet unless one is named
//	sqlite    database/sql over modernc.org/sqlite
//	postgres  database/sql over github.com/lib/pq
//	sheets    google.golang.org/api/sheets/v4 values.get
package ingest
