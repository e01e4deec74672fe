package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ejiview/internal/comparison"
	"ejiview/internal/infrastructure"
	"ejiview/internal/repository"
	"ejiview/internal/scale"
	"ejiview/internal/schema"
	"ejiview/pkg/contracts/domain"
	"ejiview/pkg/contracts/events"
)

// EventSourcesReloaded is broadcast after a successful reload
const EventSourcesReloaded = string(events.MessageTypeSourcesReloaded)

// Notifier receives reload events; the websocket hub in production
type Notifier interface {
	Broadcast(messageType string, data interface{})
}

// SourceSummary describes one loaded source
type SourceSummary struct {
	Name           string          `json:"name"`
	KeyColumn      string          `json:"key_column"`
	Rows           int             `json:"rows"`
	Metrics        []domain.Metric `json:"metrics"`
	ExcludedRows   int             `json:"excluded_rows"`
	DroppedColumns []string        `json:"dropped_columns,omitempty"`
	AliasVersion   string          `json:"alias_version,omitempty"`
}

// Catalog is the metric reference data plus the alias table in effect
type Catalog struct {
	Metrics      []domain.MetricInfo `json:"metrics"`
	AliasVersion string              `json:"alias_version"`
	Aliases      []schema.AliasEntry `json:"aliases"`
}

// EntityView is a looked-up record with its concern bands
type EntityView struct {
	domain.EntityRecord
	Bands map[domain.Metric]scale.Band `json:"bands"`
}

// CompareRequest names the two entities to compare
type CompareRequest struct {
	A       string
	ASource string
	B       string
	BSource string
	Mode    repository.MatchMode
}

// ReloadResult reports a successful reload
type ReloadResult struct {
	Sources  []SourceSummary `json:"sources"`
	LoadedAt time.Time       `json:"loaded_at"`
	Duration time.Duration   `json:"duration_ns"`
}

// snapshot is the immutable state readers see
type snapshot struct {
	repo     *repository.Repository
	aliases  *schema.AliasTable
	loadedAt time.Time
}

// DataService answers lookups and comparisons from the current repository.
// Reload builds a new repository and swaps it in; readers never block.
type DataService struct {
	loader   *Loader
	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex
	notifier Notifier
	metrics  *infrastructure.DomainMetrics
	logger   *slog.Logger
}

// NewDataService creates a service that loads through loader. Nothing is
// served until the first Reload succeeds.
func NewDataService(loader *Loader, notifier Notifier, metrics *infrastructure.DomainMetrics, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		loader:   loader,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "data_service")),
	}
}

// NewStaticDataService serves a fixed repository. Reload is unavailable.
func NewStaticDataService(repo *repository.Repository, aliases *schema.AliasTable, logger *slog.Logger) *DataService {
	ds := NewDataService(nil, nil, nil, logger)
	ds.install(repo, aliases)
	return ds
}

func (ds *DataService) install(repo *repository.Repository, aliases *schema.AliasTable) *snapshot {
	if aliases == nil {
		aliases = schema.DefaultAliases()
	}
	snap := &snapshot{repo: repo, aliases: aliases, loadedAt: time.Now().UTC()}
	ds.current.Store(snap)
	return snap
}

func (ds *DataService) snapshot() (*snapshot, error) {
	snap := ds.current.Load()
	if snap == nil || snap.repo == nil {
		return nil, ErrNoSources
	}
	return snap, nil
}

// Ready reports whether a repository has been loaded
func (ds *DataService) Ready() bool {
	_, err := ds.snapshot()
	return err == nil
}

// LoadedAt is when the current repository was installed
func (ds *DataService) LoadedAt() time.Time {
	if snap := ds.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// Reload re-fetches every source. On failure the previous repository keeps
// serving. Concurrent reloads are rejected with ErrReloadInProgress.
func (ds *DataService) Reload(ctx context.Context) (ReloadResult, error) {
	if ds.loader == nil {
		return ReloadResult{}, fmt.Errorf("%w: service has no loader", ErrInvalidInput)
	}
	if !ds.reloadMu.TryLock() {
		return ReloadResult{}, ErrReloadInProgress
	}
	defer ds.reloadMu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()
	ds.logger.InfoContext(ctx, "reloading sources", slog.Any("sources", ds.loader.SourceNames()))

	repo, aliases, err := ds.loader.LoadRepository(ctx)
	ds.metrics.RecordReload(ctx, err)
	if err != nil {
		logDataError(ctx, "reload", "reload failed", slog.String("error", err.Error()))
		return ReloadResult{}, err
	}

	snap := ds.install(repo, aliases)
	result := ReloadResult{
		Sources:  summarize(snap.repo),
		LoadedAt: snap.loadedAt,
		Duration: time.Since(start),
	}

	ds.logger.InfoContext(ctx, "sources reloaded",
		slog.Int("sources", len(result.Sources)),
		slog.Duration("duration", result.Duration),
	)

	if ds.notifier != nil {
		ds.notifier.Broadcast(EventSourcesReloaded, map[string]interface{}{
			"sources":   snap.repo.Sources(),
			"loaded_at": snap.loadedAt.Format(time.RFC3339),
			"trace_id":  infrastructure.GetTraceID(ctx),
		})
	}

	return result, nil
}

// Sources summarizes every loaded source, ordered by name
func (ds *DataService) Sources(ctx context.Context) ([]SourceSummary, error) {
	snap, err := ds.snapshot()
	if err != nil {
		return nil, err
	}
	return summarize(snap.repo), nil
}

func summarize(repo *repository.Repository) []SourceSummary {
	names := repo.Sources()
	out := make([]SourceSummary, 0, len(names))
	for _, name := range names {
		t, _ := repo.Table(name)
		out = append(out, SourceSummary{
			Name:           name,
			KeyColumn:      t.KeyColumn,
			Rows:           len(t.Rows),
			Metrics:        slices.Clone(t.Metrics),
			ExcludedRows:   t.ExcludedRows,
			DroppedColumns: slices.Clone(t.DroppedColumns),
			AliasVersion:   t.AliasVersion,
		})
	}
	return out
}

// Table returns the normalized table of source
func (ds *DataService) Table(ctx context.Context, source string) (*domain.NormalizedTable, error) {
	snap, err := ds.snapshot()
	if err != nil {
		return nil, err
	}
	t, ok := snap.repo.Table(source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, source)
	}
	return t, nil
}

// Keys lists the entity keys of source. Entities with no present metric are
// left out unless all is set.
func (ds *DataService) Keys(ctx context.Context, source string, all bool) ([]string, error) {
	snap, err := ds.snapshot()
	if err != nil {
		return nil, err
	}
	if _, ok := snap.repo.Table(source); !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, source)
	}
	keys := slices.Collect(snap.repo.Keys(source, all))
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Lookup finds one entity. A blank key is ErrInvalidInput, an absent one
// ErrEntityNotFound.
func (ds *DataService) Lookup(ctx context.Context, source, key string, mode repository.MatchMode) (domain.EntityRecord, error) {
	snap, err := ds.snapshot()
	if err != nil {
		return domain.EntityRecord{}, err
	}
	return ds.lookup(ctx, snap, source, key, mode)
}

func (ds *DataService) lookup(ctx context.Context, snap *snapshot, source, key string, mode repository.MatchMode) (domain.EntityRecord, error) {
	if strings.TrimSpace(key) == "" {
		return domain.EntityRecord{}, fmt.Errorf("%w: entity key is required", ErrInvalidInput)
	}
	if _, ok := snap.repo.Table(source); !ok {
		return domain.EntityRecord{}, fmt.Errorf("%w: %q", ErrSourceNotFound, source)
	}

	rec, found, err := snap.repo.Lookup(source, key, mode)
	if err != nil {
		logDataError(ctx, "lookup", "lookup failed",
			slog.String("source", source),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return domain.EntityRecord{}, err
	}
	ds.metrics.RecordLookup(ctx, source, mode.String(), found)
	if !found {
		return domain.EntityRecord{}, fmt.Errorf("%w: %q in %q", ErrEntityNotFound, key, source)
	}
	return rec, nil
}

// Entity is Lookup plus the concern band of every present metric
func (ds *DataService) Entity(ctx context.Context, source, key string, mode repository.MatchMode) (EntityView, error) {
	rec, err := ds.Lookup(ctx, source, key, mode)
	if err != nil {
		return EntityView{}, err
	}
	return EntityView{EntityRecord: rec, Bands: scale.ClassifyRecord(rec)}, nil
}

// Compare looks up both entities against the same snapshot and compares them
func (ds *DataService) Compare(ctx context.Context, req CompareRequest) (domain.ComparisonRecord, error) {
	snap, err := ds.snapshot()
	if err != nil {
		return domain.ComparisonRecord{}, err
	}

	a, err := ds.lookup(ctx, snap, req.ASource, req.A, req.Mode)
	if err != nil {
		return domain.ComparisonRecord{}, err
	}
	b, err := ds.lookup(ctx, snap, req.BSource, req.B, req.Mode)
	if err != nil {
		return domain.ComparisonRecord{}, err
	}

	rec := comparison.Compare(a, b)
	ds.metrics.RecordComparison(ctx, len(rec.Metrics))

	ds.logger.DebugContext(ctx, "entities compared",
		slog.String("a", a.EntityKey),
		slog.String("a_source", a.Source),
		slog.String("b", b.EntityKey),
		slog.String("b_source", b.Source),
		slog.Int("metrics", len(rec.Metrics)),
	)
	return rec, nil
}

// Catalog returns the metric reference data and the active alias table
func (ds *DataService) Catalog(ctx context.Context) Catalog {
	aliases := schema.DefaultAliases()
	if snap := ds.current.Load(); snap != nil && snap.aliases != nil {
		aliases = snap.aliases.Clone()
	}
	return Catalog{
		Metrics:      domain.Catalog(),
		AliasVersion: aliases.Version,
		Aliases:      aliases.Entries,
	}
}

// Scale returns the concern band reference table
func (ds *DataService) Scale() []scale.Band {
	return scale.Bands()
}
