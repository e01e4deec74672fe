// Package comparison aligns two entity records into a side-by-side view.
package comparison

import (
	"ejiview/pkg/contracts/domain"
)

// Compare builds the comparison of a and b. The metric list is the union of
// metrics present on either side in canonical order; a metric present on one
// side only carries the missing marker on the other. Compare is pure, and
// Compare(b, a) equals Compare(a, b).Swap().
func Compare(a, b domain.EntityRecord) domain.ComparisonRecord {
	metrics := unionMetrics(a, b)

	out := domain.ComparisonRecord{
		EntityA: domain.EntityRef{Key: a.EntityKey, Source: a.Source},
		EntityB: domain.EntityRef{Key: b.EntityKey, Source: b.Source},
		Metrics: metrics,
		Pairs:   make([]domain.Pair, 0, len(metrics)),
		Series: domain.Series{
			Labels: make([]string, 0, len(metrics)),
			A:      make([]domain.Value, 0, len(metrics)),
			B:      make([]domain.Value, 0, len(metrics)),
		},
	}

	for _, m := range metrics {
		va, vb := a.Value(m), b.Value(m)
		out.Pairs = append(out.Pairs, domain.Pair{Metric: m, A: va, B: vb})
		out.Series.Labels = append(out.Series.Labels, m.Info().Label)
		out.Series.A = append(out.Series.A, va)
		out.Series.B = append(out.Series.B, vb)
	}

	out.Table = []domain.TableRow{
		{Entity: a.EntityKey, Values: append(make([]domain.Value, 0, len(metrics)), out.Series.A...)},
		{Entity: b.EntityKey, Values: append(make([]domain.Value, 0, len(metrics)), out.Series.B...)},
	}
	return out
}

func unionMetrics(a, b domain.EntityRecord) []domain.Metric {
	seen := make(map[domain.Metric]bool, len(a.Values)+len(b.Values))
	metrics := make([]domain.Metric, 0, len(a.Values)+len(b.Values))
	for _, rec := range []domain.EntityRecord{a, b} {
		for m, v := range rec.Values {
			if !v.Valid || seen[m] {
				continue
			}
			seen[m] = true
			metrics = append(metrics, m)
		}
	}
	domain.SortMetrics(metrics)
	return metrics
}
