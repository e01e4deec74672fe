package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ejiview/internal/config"
)

// TableFile represents a table file found on disk
type TableFile struct {
	Path    string
	Name    string
	Kind    config.SourceKind
	Size    int64
	ModTime time.Time
}

// Discovery finds table files under a base path
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// KindForPath returns the source kind for a file extension. Only CSV and
// XLSX workbooks are file tables.
func KindForPath(path string) (config.SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return config.SourceCSV, true
	case ".xlsx", ".xlsm":
		return config.SourceXLSX, true
	default:
		return "", false
	}
}

// SourceName derives a source name from a file: its base name without
// the extension
func SourceName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindTables lists the CSV and XLSX files directly in dir, sorted by name.
// Hidden files and Excel lock files (~$name.xlsx) are skipped.
func (d *Discovery) FindTables(dir string) ([]TableFile, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var tables []TableFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}

		kind, ok := KindForPath(name)
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		tables = append(tables, TableFile{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})

	return tables, nil
}

// Sources turns every table in dir into a source named after its file.
// Two files sharing a name (county.csv and county.xlsx) are an error since
// source names must be unique.
func (d *Discovery) Sources(dir string) ([]config.SourceConfig, error) {
	tables, err := d.FindTables(dir)
	if err != nil {
		return nil, err
	}

	sources := make([]config.SourceConfig, 0, len(tables))
	seen := make(map[string]string, len(tables))
	for _, t := range tables {
		name := SourceName(t.Name)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("source %q: both %s and %s", name, prev, t.Name)
		}
		seen[name] = t.Name

		abs, err := filepath.Abs(t.Path)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		sources = append(sources, config.SourceConfig{Name: name, Kind: t.Kind, Path: abs})
	}

	return sources, nil
}
