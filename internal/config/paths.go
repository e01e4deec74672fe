package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
type Paths struct {
	BaseDir    string
	DataDir    string
	LogsDir    string
	ExportsDir string

	// Google service account used by sheets sources without their own file
	CredentialsFile string
	// Default alias table override, used when present
	AliasFile string
}

// NewPaths anchors relative directories in cfg at base
//
//	base/
//	  ├── credentials.json
//	  ├── aliases.yaml
//	  ├── data/
//	  │   └── exports/
//	  └── logs/
func NewPaths(base string, cfg PathsConfig) *Paths {
	anchor := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:         base,
		DataDir:         anchor(cfg.DataDir, DefaultDataDir),
		LogsDir:         anchor(cfg.LogsDir, DefaultLogsDir),
		ExportsDir:      anchor(cfg.ExportsDir, DefaultExportsDir),
		CredentialsFile: filepath.Join(base, "credentials.json"),
		AliasFile:       filepath.Join(base, "aliases.yaml"),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.LogsDir,
		p.ExportsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetExportPath returns the path for an exported comparison file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// ExportFileName builds a filesystem-safe name for a comparison export
func ExportFileName(keyA, keyB, ext string) string {
	clean := func(s string) string {
		s = strings.TrimSpace(s)
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			default:
				return '_'
			}
		}, s)
	}
	return fmt.Sprintf("eji_%s_vs_%s.%s", clean(keyA), clean(keyB), strings.TrimPrefix(ext, "."))
}

// GetCredentialsPath returns the path for the Google Sheets credentials file
func (p *Paths) GetCredentialsPath() string {
	slog.Default().Debug("Credentials path resolved",
		slog.String("path", p.CredentialsFile),
		slog.Bool("exists", FileExists(p.CredentialsFile)))
	return p.CredentialsFile
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	slog.Default().Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
			slog.String("exports", p.ExportsDir),
		),
		slog.Group("config_files",
			slog.String("credentials", p.CredentialsFile),
			slog.String("aliases", p.AliasFile),
		))
}
