package domain

import (
	"sort"
	"strings"
)

// Metric identifies one of the canonical EJI percentile indicators.
type Metric string

const (
	MetricOverall             Metric = "OVERALL"
	MetricEnvironmentalBurden Metric = "ENVIRONMENTAL_BURDEN"
	MetricSocialVulnerability Metric = "SOCIAL_VULNERABILITY"
	MetricHealthVulnerability Metric = "HEALTH_VULNERABILITY"
	MetricClimateBurden       Metric = "CLIMATE_BURDEN"
	MetricCombined            Metric = "COMBINED"
)

// canonicalOrder is the fixed display and comparison order of the metric set.
var canonicalOrder = []Metric{
	MetricOverall,
	MetricEnvironmentalBurden,
	MetricSocialVulnerability,
	MetricHealthVulnerability,
	MetricClimateBurden,
	MetricCombined,
}

var metricRank = func() map[Metric]int {
	ranks := make(map[Metric]int, len(canonicalOrder))
	for i, m := range canonicalOrder {
		ranks[m] = i
	}
	return ranks
}()

// Metrics returns the canonical metrics in their fixed order.
func Metrics() []Metric {
	out := make([]Metric, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Rank returns the position of m in the canonical order, or -1 for a metric
// outside the closed set.
func (m Metric) Rank() int {
	if r, ok := metricRank[m]; ok {
		return r
	}
	return -1
}

// Valid reports whether m belongs to the canonical set.
func (m Metric) Valid() bool {
	return m.Rank() >= 0
}

func (m Metric) String() string {
	return string(m)
}

// ParseMetric resolves a canonical identifier, ignoring case and surrounding
// whitespace.
func ParseMetric(s string) (Metric, bool) {
	m := Metric(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

// SortMetrics orders metrics canonically. Unknown metrics sort after the
// canonical ones, by identifier.
func SortMetrics(metrics []Metric) {
	sort.SliceStable(metrics, func(i, j int) bool {
		ri, rj := metrics[i].Rank(), metrics[j].Rank()
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return metrics[i] < metrics[j]
		}
	})
}

// MetricInfo is the reference description of a canonical metric.
type MetricInfo struct {
	ID          Metric `json:"id"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var catalog = map[Metric]MetricInfo{
	MetricOverall: {
		ID:          MetricOverall,
		Label:       "Overall EJI",
		Color:       "#6A1B9A",
		Description: "Cumulative environmental justice index percentile rank.",
	},
	MetricEnvironmentalBurden: {
		ID:          MetricEnvironmentalBurden,
		Label:       "Environmental Burden",
		Color:       "#2E7D32",
		Description: "Environmental burden module percentile rank.",
	},
	MetricSocialVulnerability: {
		ID:          MetricSocialVulnerability,
		Label:       "Social Vulnerability",
		Color:       "#1565C0",
		Description: "Social vulnerability module percentile rank.",
	},
	MetricHealthVulnerability: {
		ID:          MetricHealthVulnerability,
		Label:       "Health Vulnerability",
		Color:       "#C62828",
		Description: "Health vulnerability module percentile rank.",
	},
	MetricClimateBurden: {
		ID:          MetricClimateBurden,
		Label:       "Climate Burden",
		Color:       "#EF6C00",
		Description: "Climate burden module percentile rank.",
	},
	MetricCombined: {
		ID:          MetricCombined,
		Label:       "EJI + Climate Burden",
		Color:       "#4E342E",
		Description: "Combined index of the EJI and the climate burden module.",
	},
}

// Info returns the catalog entry for m. Unknown metrics get their identifier
// as label and no color.
func (m Metric) Info() MetricInfo {
	if info, ok := catalog[m]; ok {
		return info
	}
	return MetricInfo{ID: m, Label: string(m)}
}

// Catalog lists every canonical metric in canonical order.
func Catalog() []MetricInfo {
	out := make([]MetricInfo, 0, len(canonicalOrder))
	for _, m := range canonicalOrder {
		out = append(out, catalog[m])
	}
	return out
}
