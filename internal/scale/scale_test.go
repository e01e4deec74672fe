package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ejiview/pkg/contracts/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		value domain.Value
		want  Level
		ok    bool
	}{
		{name: "zero", value: domain.Number(0), want: LevelLow, ok: true},
		{name: "low upper bound", value: domain.Number(0.25), want: LevelLow, ok: true},
		{name: "gap falls low", value: domain.Number(0.255), want: LevelLow, ok: true},
		{name: "moderate", value: domain.Number(0.26), want: LevelModerate, ok: true},
		{name: "moderate upper bound", value: domain.Number(0.5), want: LevelModerate, ok: true},
		{name: "high", value: domain.Number(0.72), want: LevelHigh, ok: true},
		{name: "very high", value: domain.Number(0.76), want: LevelVeryHigh, ok: true},
		{name: "one", value: domain.Number(1), want: LevelVeryHigh, ok: true},
		{name: "missing", value: domain.Missing, ok: false},
		{name: "negative", value: domain.Number(-0.1), ok: false},
		{name: "above one", value: domain.Number(33), ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, ok := Classify(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, band.Level)
		})
	}
}

func TestBands(t *testing.T) {
	got := Bands()
	require.Len(t, got, 4)
	assert.Equal(t, "#4CAF50", got[0].Color)
	assert.Equal(t, "#F44336", got[3].Color)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Min, got[i-1].Max)
	}

	got[0].Label = "changed"
	assert.Equal(t, "Low Concern", Bands()[0].Label)
}

func TestClassifyRecord(t *testing.T) {
	rec := domain.NewEntityRecord("county", "Taos County", map[domain.Metric]domain.Value{
		domain.MetricOverall:       domain.Number(0.8),
		domain.MetricClimateBurden: domain.Missing,
	})
	got := ClassifyRecord(rec)
	require.Len(t, got, 1)
	assert.Equal(t, LevelVeryHigh, got[domain.MetricOverall].Level)
}
