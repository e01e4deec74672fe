package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"ejiview/internal/config"
	apperrors "ejiview/internal/errors"
	"ejiview/internal/infrastructure"
	"ejiview/internal/ingest"
	"ejiview/internal/repository"
	"ejiview/internal/schema"
	"ejiview/pkg/contracts/domain"
)

// SourceFactory turns a configured source into a fetchable one
type SourceFactory func(cfg config.SourceConfig) (ingest.Source, error)

// Loader fetches every configured source concurrently and normalizes the
// results into a repository
type Loader struct {
	data    config.DataConfig
	factory SourceFactory
	metrics *infrastructure.DomainMetrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewLoader creates a loader for data. opts are passed to Google Sheets
// sources.
func NewLoader(data config.DataConfig, metrics *infrastructure.DomainMetrics, logger *slog.Logger, opts ...option.ClientOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		data: data,
		factory: func(cfg config.SourceConfig) (ingest.Source, error) {
			return ingest.FromConfig(cfg, opts...)
		},
		metrics: metrics,
		tracer:  otel.Tracer(infrastructure.ServiceName),
		logger:  logger.With(slog.String("component", "loader")),
	}
}

// WithFactory replaces how sources are built
func (l *Loader) WithFactory(f SourceFactory) *Loader {
	l.factory = f
	return l
}

// SourceNames lists the configured sources in configuration order
func (l *Loader) SourceNames() []string {
	names := make([]string, 0, len(l.data.Sources))
	for _, s := range l.data.Sources {
		names = append(names, s.Name)
	}
	return names
}

// Aliases returns the configured alias table, or the embedded default
func (l *Loader) Aliases() (*schema.AliasTable, error) {
	if l.data.AliasFile == "" {
		return schema.DefaultAliases(), nil
	}
	aliases, err := schema.LoadAliasFile(l.data.AliasFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load alias file", err).WithContext("path", l.data.AliasFile)
	}
	return aliases, nil
}

// Options derives normalization options from the data config
func (l *Loader) Options() schema.Options {
	opts := schema.DefaultOptions()
	if len(l.data.NoDataValues) > 0 {
		opts.NoDataValues = append([]float64(nil), l.data.NoDataValues...)
	}
	return opts
}

// Load fetches and normalizes every source. Any failure fails the whole load
// and cancels the fetches still running.
func (l *Loader) Load(ctx context.Context) ([]*domain.NormalizedTable, *schema.AliasTable, error) {
	if len(l.data.Sources) == 0 {
		return nil, nil, ErrNoSources
	}

	aliases, err := l.Aliases()
	if err != nil {
		return nil, nil, err
	}

	if l.data.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.data.LoadTimeout)
		defer cancel()
	}

	opts := l.Options()
	tables := make([]*domain.NormalizedTable, len(l.data.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range l.data.Sources {
		g.Go(func() error {
			table, err := l.loadOne(gctx, src, aliases, opts)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tables, aliases, nil
}

// LoadRepository is Load followed by indexing
func (l *Loader) LoadRepository(ctx context.Context) (*repository.Repository, *schema.AliasTable, error) {
	tables, aliases, err := l.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.New(tables...)
	if err != nil {
		return nil, nil, apperrors.NewStorageError("failed to index tables", err)
	}
	return repo, aliases, nil
}

func (l *Loader) loadOne(ctx context.Context, cfg config.SourceConfig, aliases *schema.AliasTable, opts schema.Options) (*domain.NormalizedTable, error) {
	ctx, span := l.tracer.Start(ctx, "source.load",
		trace.WithAttributes(
			attribute.String("source.name", cfg.Name),
			attribute.String("source.kind", string(cfg.Kind)),
		),
	)
	defer span.End()

	src, err := l.factory(cfg)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	start := time.Now()
	raw, err := src.Fetch(ctx)
	l.metrics.RecordSourceFetch(ctx, cfg.Name, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		l.logger.ErrorContext(ctx, "source fetch failed",
			slog.String("source", cfg.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
	}
	raw.Source = cfg.Name

	table, err := schema.NormalizeWithOptions(raw, aliases, cfg.KeyCandidates(l.data.KeyCandidates), opts)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		l.logger.ErrorContext(ctx, "normalization failed",
			slog.String("source", cfg.Name),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.NewSchemaError(cfg.Name, err)
	}

	l.metrics.RecordTableShape(ctx, cfg.Name, len(table.Rows), table.ExcludedRows, len(table.DroppedColumns))
	span.SetAttributes(
		attribute.Int("table.rows", len(table.Rows)),
		attribute.String("table.key_column", table.KeyColumn),
	)

	l.logger.InfoContext(ctx, "source loaded",
		slog.String("source", cfg.Name),
		slog.String("key_column", table.KeyColumn),
		slog.Int("rows", len(table.Rows)),
		slog.Int("metrics", len(table.Metrics)),
		slog.Int("excluded_rows", table.ExcludedRows),
		slog.Any("dropped_columns", table.DroppedColumns),
		slog.Duration("duration", time.Since(start)),
	)

	return table, nil
}
