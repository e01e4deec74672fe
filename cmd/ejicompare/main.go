package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ejiview/internal/config"
	"ejiview/internal/exporter"
	"ejiview/internal/files"
	"ejiview/internal/infrastructure"
	"ejiview/internal/repository"
	"ejiview/internal/services"
	"ejiview/pkg/contracts/domain"
)

const usage = `ejicompare loads EJI tables and lists entities, dumps a normalized
table or compares two entities.

Usage:
  ejicompare [-config file] [-dir dir] [-source name=path ...] -list source [-all]
  ejicompare [-config file] [-dir dir] [-source name=path ...] -dump source
             [-format json|csv] [-out file]
  ejicompare [-config file] [-dir dir] [-source name=path ...] -a key -b key
             [-a-source name] [-b-source name] [-normalized]
             [-format json|csv|xlsx] [-out file]

Flags:
`

// sourceFlags collects repeated -source name=path flags
type sourceFlags []config.SourceConfig

func (s *sourceFlags) String() string {
	names := make([]string, 0, len(*s))
	for _, src := range *s {
		names = append(names, src.Name+"="+src.Path)
	}
	return strings.Join(names, ",")
}

func (s *sourceFlags) Set(value string) error {
	src, err := parseSource(value)
	if err != nil {
		return err
	}
	*s = append(*s, src)
	return nil
}

// parseSource turns name=path into a file source, picking the kind from
// the extension
func parseSource(value string) (config.SourceConfig, error) {
	name, path, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return config.SourceConfig{}, fmt.Errorf("source %q: want name=path", value)
	}

	kind, ok := files.KindForPath(path)
	if !ok {
		return config.SourceConfig{}, fmt.Errorf("source %q: unsupported file type %q", name, filepath.Ext(path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return config.SourceConfig{}, fmt.Errorf("source %q: %w", name, err)
	}
	return config.SourceConfig{Name: name, Kind: kind, Path: abs}, nil
}

type options struct {
	configPath string
	dir        string
	sources    sourceFlags
	list       string
	dump       string
	all        bool
	a          string
	b          string
	aSource    string
	bSource    string
	normalized bool
	format     string
	out        string
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("ejicompare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "YAML config file with data sources")
	fs.StringVar(&opts.dir, "dir", "", "load every CSV and XLSX file in this directory, named after the file")
	fs.Var(&opts.sources, "source", "name=path of a CSV or XLSX table (repeatable, replaces configured sources)")
	fs.StringVar(&opts.list, "list", "", "list the entity keys of this source")
	fs.StringVar(&opts.dump, "dump", "", "write the normalized table of this source")
	fs.BoolVar(&opts.all, "all", false, "with -list, include entities with no metric values")
	fs.StringVar(&opts.a, "a", "", "first entity key")
	fs.StringVar(&opts.b, "b", "", "second entity key")
	fs.StringVar(&opts.aSource, "a-source", "", "source of the first entity (defaults to the only source)")
	fs.StringVar(&opts.bSource, "b-source", "", "source of the second entity (defaults to -a-source)")
	fs.BoolVar(&opts.normalized, "normalized", false, "match keys ignoring case and surrounding whitespace")
	fs.StringVar(&opts.format, "format", "json", "output format: json, csv or xlsx")
	fs.StringVar(&opts.out, "out", "", "output file (defaults to stdout; xlsx defaults to a generated file name)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	switch opts.format {
	case "json", "csv", "xlsx":
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	if opts.list != "" && opts.dump != "" {
		return nil, errors.New("-list and -dump are exclusive")
	}
	if opts.dump != "" && opts.format == "xlsx" {
		return nil, errors.New("-dump writes json or csv")
	}
	if opts.list == "" && opts.dump == "" && (strings.TrimSpace(opts.a) == "" || strings.TrimSpace(opts.b) == "") {
		return nil, errors.New("either -list, -dump or both -a and -b are required")
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ejicompare: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if len(cfg.Data.Sources) == 0 {
		return errors.New("no sources: pass -config, -dir or -source name=path")
	}

	cfg.Logging.Level = opts.logLevel
	cfg.Logging.Format = "text"
	logger := infrastructure.WithComponent(infrastructure.NewLogger(cfg.Logging, stderr), "ejicompare")

	loader := services.NewLoader(cfg.Data, nil, logger)
	repo, aliases, err := loader.LoadRepository(ctx)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	svc := services.NewStaticDataService(repo, aliases, logger)

	switch {
	case opts.list != "":
		return listKeys(ctx, svc, opts, stdout)
	case opts.dump != "":
		return dumpTable(ctx, svc, opts, stdout)
	}
	return compare(ctx, svc, repo.Sources(), opts, stdout)
}

// loadConfig reads the optional config file. Tables found by -dir and
// -source flags replace its sources.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var sources []config.SourceConfig
	if opts.dir != "" {
		found, err := files.NewDiscovery("").Sources(opts.dir)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no CSV or XLSX files in %s", opts.dir)
		}
		sources = append(sources, found...)
	}
	sources = append(sources, opts.sources...)

	if len(sources) > 0 {
		seen := make(map[string]bool, len(sources))
		for _, src := range sources {
			if seen[src.Name] {
				return nil, fmt.Errorf("duplicate source name %q", src.Name)
			}
			seen[src.Name] = true
		}
		cfg.Data.Sources = sources
	}
	return cfg, nil
}

func listKeys(ctx context.Context, svc *services.DataService, opts *options, stdout io.Writer) error {
	keys, err := svc.Keys(ctx, opts.list, opts.all)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeJSON(stdout, keys)
	}
	for _, key := range keys {
		if _, err := fmt.Fprintln(stdout, key); err != nil {
			return err
		}
	}
	return nil
}

// dumpTable writes the normalized table of opts.dump. CSV output uses
// canonical column names, so it can be loaded again as a source.
func dumpTable(ctx context.Context, svc *services.DataService, opts *options, stdout io.Writer) error {
	table, err := svc.Table(ctx, opts.dump)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		if opts.out == "" {
			return writeJSON(stdout, table)
		}
		return writeFile(opts.out, func(w io.Writer) error { return writeJSON(w, table) })
	}

	if opts.out == "" {
		headers, records := exporter.TableRecords(table)
		return exporter.EncodeCSV(stdout, headers, records, false)
	}
	out, err := filepath.Abs(opts.out)
	if err != nil {
		return err
	}
	return exporter.NewCSVWriter(nil).WriteTable(out, table)
}

func compare(ctx context.Context, svc *services.DataService, sources []string, opts *options, stdout io.Writer) error {
	aSource := opts.aSource
	if aSource == "" {
		if len(sources) != 1 {
			return fmt.Errorf("-a-source is required with %d sources (%s)", len(sources), strings.Join(sources, ", "))
		}
		aSource = sources[0]
	}
	bSource := opts.bSource
	if bSource == "" {
		bSource = aSource
	}

	mode := repository.MatchExact
	if opts.normalized {
		mode = repository.MatchNormalized
	}

	rec, err := svc.Compare(ctx, services.CompareRequest{
		A:       strings.TrimSpace(opts.a),
		ASource: aSource,
		B:       strings.TrimSpace(opts.b),
		BSource: bSource,
		Mode:    mode,
	})
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	out := opts.out
	if out == "" && opts.format == "xlsx" {
		out = config.ExportFileName(rec.EntityA.Key, rec.EntityB.Key, "xlsx")
	}
	if out == "" {
		return writeComparison(stdout, rec, opts.format)
	}
	return writeFile(out, func(w io.Writer) error { return writeComparison(w, rec, opts.format) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func writeComparison(w io.Writer, rec domain.ComparisonRecord, format string) error {
	switch format {
	case "csv":
		return exporter.WriteComparisonCSV(w, rec)
	case "xlsx":
		return exporter.WriteComparisonXLSX(w, rec)
	default:
		return writeJSON(w, rec)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
