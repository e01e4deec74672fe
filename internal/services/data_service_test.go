package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ejiview/internal/config"
	"ejiview/internal/repository"
	"ejiview/internal/scale"
	"ejiview/internal/schema"
	"ejiview/internal/shared/testutil"
	"ejiview/pkg/contracts/domain"
)

func newStaticService(t *testing.T) *DataService {
	t.Helper()

	aliases := schema.DefaultAliases()
	var tables []*domain.NormalizedTable
	for _, raw := range []*domain.RawTable{testutil.CountyRawTable(), testutil.NationalRawTable(), testutil.StateRawTable()} {
		table, err := schema.Normalize(raw, aliases, config.DefaultKeyCandidates)
		require.NoError(t, err)
		tables = append(tables, table)
	}
	repo, err := repository.New(tables...)
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	return NewStaticDataService(repo, aliases, logger)
}

func TestDataServiceNotLoaded(t *testing.T) {
	ds := NewDataService(nil, nil, nil, nil)
	ctx := context.Background()

	assert.False(t, ds.Ready())
	assert.True(t, ds.LoadedAt().IsZero())

	_, err := ds.Sources(ctx)
	assert.ErrorIs(t, err, ErrNoSources)
	_, err = ds.Lookup(ctx, "county", "Taos County", repository.MatchExact)
	assert.ErrorIs(t, err, ErrNoSources)
	_, err = ds.Compare(ctx, CompareRequest{A: "a", ASource: "county", B: "b", BSource: "county"})
	assert.ErrorIs(t, err, ErrNoSources)

	_, err = ds.Reload(ctx)
	assert.ErrorIs(t, err, ErrInvalidInput, "a service without a loader cannot reload")

	// Reference data is served before any load
	catalog := ds.Catalog(ctx)
	assert.Len(t, catalog.Metrics, len(domain.Metrics()))
	assert.Equal(t, schema.DefaultAliases().Version, catalog.AliasVersion)
	assert.Len(t, ds.Scale(), 4)
}

func TestDataServiceSources(t *testing.T) {
	ds := newStaticService(t)
	require.True(t, ds.Ready())

	sources, err := ds.Sources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	county := sources[0]
	assert.Equal(t, "county", county.Name)
	assert.Equal(t, "COUNTY", county.KeyColumn)
	assert.Equal(t, 3, county.Rows)
	assert.Equal(t, 1, county.ExcludedRows)
	assert.Equal(t, []domain.Metric{domain.MetricOverall, domain.MetricEnvironmentalBurden, domain.MetricClimateBurden}, county.Metrics)

	assert.Equal(t, "national", sources[1].Name)
	assert.Equal(t, "state", sources[2].Name)
}

func TestDataServiceTable(t *testing.T) {
	ds := newStaticService(t)

	table, err := ds.Table(context.Background(), "state")
	require.NoError(t, err)
	assert.Equal(t, "State", table.KeyColumn)

	_, err = ds.Table(context.Background(), "tract")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestDataServiceKeys(t *testing.T) {
	ds := newStaticService(t)
	ctx := context.Background()

	keys, err := ds.Keys(ctx, "county", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bernalillo County", "Santa Fe County", "Taos County"}, keys)

	_, err = ds.Keys(ctx, "tract", false)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestDataServiceKeysEmptySource(t *testing.T) {
	table := &domain.NormalizedTable{Source: "empty", KeyColumn: "Name"}
	repo, err := repository.New(table)
	require.NoError(t, err)
	ds := NewStaticDataService(repo, nil, nil)

	keys, err := ds.Keys(context.Background(), "empty", true)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestDataServiceLookup(t *testing.T) {
	ds := newStaticService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		source  string
		key     string
		mode    repository.MatchMode
		wantErr error
	}{
		{name: "exact", source: "county", key: "Taos County", mode: repository.MatchExact},
		{name: "normalized", source: "county", key: "  taos county ", mode: repository.MatchNormalized},
		{name: "exact is case sensitive", source: "county", key: "taos county", mode: repository.MatchExact, wantErr: ErrEntityNotFound},
		{name: "blank key", source: "county", key: "   ", wantErr: ErrInvalidInput},
		{name: "unknown source", source: "tract", key: "Taos County", wantErr: ErrSourceNotFound},
		{name: "summary row excluded", source: "county", key: "Count", wantErr: ErrEntityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ds.Lookup(ctx, tt.source, tt.key, tt.mode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Taos County", rec.EntityKey)
			assert.Equal(t, "county", rec.Source)
			assert.Equal(t, domain.Number(0.38), rec.Value(domain.MetricOverall))
			assert.False(t, rec.Value(domain.MetricEnvironmentalBurden).Valid, "-999 is a no-data marker")
		})
	}
}

func TestDataServiceLookupDuplicateKey(t *testing.T) {
	table := &domain.NormalizedTable{
		Source:    "dup",
		KeyColumn: "Name",
		Rows: []domain.NormalizedRow{
			{EntityKey: "Luna County", Values: map[domain.Metric]domain.Value{domain.MetricOverall: domain.Number(0.1)}},
			{EntityKey: "luna county", Values: map[domain.Metric]domain.Value{domain.MetricOverall: domain.Number(0.2)}},
		},
	}
	repo, err := repository.New(table)
	require.NoError(t, err)
	ds := NewStaticDataService(repo, nil, nil)

	_, err = ds.Lookup(context.Background(), "dup", "LUNA COUNTY", repository.MatchNormalized)
	assert.ErrorIs(t, err, schema.ErrDuplicateKey)

	rec, err := ds.Lookup(context.Background(), "dup", "Luna County", repository.MatchExact)
	require.NoError(t, err)
	assert.Equal(t, domain.Number(0.1), rec.Value(domain.MetricOverall))
}

func TestDataServiceEntity(t *testing.T) {
	ds := newStaticService(t)

	view, err := ds.Entity(context.Background(), "county", "Bernalillo County", repository.MatchExact)
	require.NoError(t, err)
	assert.Equal(t, "Bernalillo County", view.EntityKey)
	assert.Equal(t, scale.LevelHigh, view.Bands[domain.MetricOverall].Level)
	assert.Equal(t, scale.LevelHigh, view.Bands[domain.MetricEnvironmentalBurden].Level)
	assert.Equal(t, scale.LevelModerate, view.Bands[domain.MetricClimateBurden].Level)
	assert.NotContains(t, view.Bands, domain.MetricSocialVulnerability)

	_, err = ds.Entity(context.Background(), "county", "Nowhere", repository.MatchExact)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestDataServiceCompare(t *testing.T) {
	ds := newStaticService(t)

	rec, err := ds.Compare(context.Background(), CompareRequest{
		A: "Bernalillo County", ASource: "county",
		B: "United States", BSource: "national",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EntityRef{Key: "Bernalillo County", Source: "county"}, rec.EntityA)
	assert.Equal(t, domain.EntityRef{Key: "United States", Source: "national"}, rec.EntityB)
	assert.Equal(t, []domain.Metric{
		domain.MetricOverall,
		domain.MetricEnvironmentalBurden,
		domain.MetricSocialVulnerability,
		domain.MetricClimateBurden,
		domain.MetricCombined,
	}, rec.Metrics)

	require.Len(t, rec.Pairs, 5)
	assert.Equal(t, domain.Number(0.72), rec.Pairs[0].A)
	assert.Equal(t, domain.Number(0.5), rec.Pairs[0].B)
	assert.False(t, rec.Pairs[1].B.Valid, "national has no environmental burden")
	assert.False(t, rec.Pairs[2].A.Valid, "county has no social vulnerability")
	require.Len(t, rec.Table, 2)
	assert.Equal(t, "Bernalillo County", rec.Table[0].Entity)
}

func TestDataServiceCompareErrors(t *testing.T) {
	ds := newStaticService(t)
	ctx := context.Background()

	_, err := ds.Compare(ctx, CompareRequest{A: "Nowhere", ASource: "county", B: "United States", BSource: "national"})
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = ds.Compare(ctx, CompareRequest{A: "Taos County", ASource: "county", B: "United States", BSource: "world"})
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = ds.Compare(ctx, CompareRequest{A: "", ASource: "county", B: "United States", BSource: "national"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDataServiceReload(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	sources := fixtureSources()
	loader := NewLoader(testDataConfig("county", "national"), nil, logger).WithFactory(fakeFactory(sources))

	notifier := &MockNotifier{}
	notifier.On("Broadcast", EventSourcesReloaded, mock.MatchedBy(func(data map[string]interface{}) bool {
		names, ok := data["sources"].([]string)
		return ok && assert.ObjectsAreEqual([]string{"county", "national"}, names)
	})).Once()

	ds := NewDataService(loader, notifier, nil, logger)
	result, err := ds.Reload(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "county", result.Sources[0].Name)
	assert.False(t, result.LoadedAt.IsZero())
	assert.True(t, ds.Ready())
	assert.Equal(t, result.LoadedAt, ds.LoadedAt())
	assert.True(t, logs.ContainsMessage("sources reloaded"))

	notifier.AssertExpectations(t)
}

func TestDataServiceReloadFailureKeepsSnapshot(t *testing.T) {
	sources := fixtureSources()
	loader := NewLoader(testDataConfig("county"), nil, nil).WithFactory(fakeFactory(sources))
	ds := NewDataService(loader, nil, nil, nil)

	_, err := ds.Reload(context.Background())
	require.NoError(t, err)
	loadedAt := ds.LoadedAt()

	sources["county"].err = errors.New("connection refused")
	_, err = ds.Reload(context.Background())
	require.Error(t, err)

	assert.Equal(t, loadedAt, ds.LoadedAt())
	rec, err := ds.Lookup(context.Background(), "county", "Taos County", repository.MatchExact)
	require.NoError(t, err)
	assert.Equal(t, "Taos County", rec.EntityKey)
}

func TestDataServiceReloadInProgress(t *testing.T) {
	loader := NewLoader(testDataConfig("county"), nil, nil).WithFactory(fakeFactory(fixtureSources()))
	ds := NewDataService(loader, nil, nil, nil)

	ds.reloadMu.Lock()
	_, err := ds.Reload(context.Background())
	ds.reloadMu.Unlock()
	assert.ErrorIs(t, err, ErrReloadInProgress)
	assert.False(t, ds.Ready())
}

func TestDataServiceCatalogUsesLoadedAliases(t *testing.T) {
	aliases := &schema.AliasTable{
		Version: "custom-2",
		Entries: []schema.AliasEntry{{Metric: domain.MetricOverall, Aliases: []string{"Score"}}},
	}
	repo, err := repository.New()
	require.NoError(t, err)
	ds := NewStaticDataService(repo, aliases, nil)

	catalog := ds.Catalog(context.Background())
	assert.Equal(t, "custom-2", catalog.AliasVersion)
	require.Len(t, catalog.Aliases, 1)

	catalog.Aliases[0].Aliases[0] = "changed"
	assert.Equal(t, "Score", aliases.Entries[0].Aliases[0], "catalog must not alias the live table")
}
