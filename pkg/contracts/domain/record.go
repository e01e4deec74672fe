package domain

import "slices"

// EntityRecord is one entity's metrics, built per lookup.
type EntityRecord struct {
	EntityKey string           `json:"entity_key"`
	Source    string           `json:"source"`
	Values    map[Metric]Value `json:"values"`
}

// NewEntityRecord copies values so the record never aliases table storage.
func NewEntityRecord(source, key string, values map[Metric]Value) EntityRecord {
	copied := make(map[Metric]Value, len(values))
	for m, v := range values {
		copied[m] = v
	}
	return EntityRecord{EntityKey: key, Source: source, Values: copied}
}

// Value returns the record's value for m, missing when absent.
func (r EntityRecord) Value(m Metric) Value {
	return r.Values[m]
}

// PresentMetrics lists metrics with a non-missing value, canonically ordered.
func (r EntityRecord) PresentMetrics() []Metric {
	out := make([]Metric, 0, len(r.Values))
	for m, v := range r.Values {
		if v.Valid {
			out = append(out, m)
		}
	}
	SortMetrics(out)
	return out
}

// EntityRef names a compared entity.
type EntityRef struct {
	Key    string `json:"key"`
	Source string `json:"source"`
}

// Pair holds both sides of one metric.
type Pair struct {
	Metric Metric `json:"metric"`
	A      Value  `json:"a"`
	B      Value  `json:"b"`
}

// TableRow is one entity's row in the comparison table: Values follows
// ComparisonRecord.Metrics.
type TableRow struct {
	Entity string  `json:"entity"`
	Values []Value `json:"values"`
}

// Series holds the chart-ready sequences, aligned index by index.
type Series struct {
	Labels []string `json:"labels"`
	A      []Value  `json:"a"`
	B      []Value  `json:"b"`
}

// ComparisonRecord is the side-by-side view of two entities.
type ComparisonRecord struct {
	EntityA EntityRef  `json:"entity_a"`
	EntityB EntityRef  `json:"entity_b"`
	Metrics []Metric   `json:"metrics"`
	Pairs   []Pair     `json:"pairs"`
	Table   []TableRow `json:"table"`
	Series  Series     `json:"series"`
}

// Swap returns the mirrored record with A and B exchanged.
func (c ComparisonRecord) Swap() ComparisonRecord {
	out := ComparisonRecord{
		EntityA: c.EntityB,
		EntityB: c.EntityA,
		Metrics: slices.Clone(c.Metrics),
		Pairs:   make([]Pair, len(c.Pairs)),
		Series: Series{
			Labels: slices.Clone(c.Series.Labels),
			A:      slices.Clone(c.Series.B),
			B:      slices.Clone(c.Series.A),
		},
	}
	for i, p := range c.Pairs {
		out.Pairs[i] = Pair{Metric: p.Metric, A: p.B, B: p.A}
	}
	out.Table = make([]TableRow, len(c.Table))
	for i, r := range c.Table {
		out.Table[len(c.Table)-1-i] = copyRow(r)
	}
	return out
}

func copyRow(r TableRow) TableRow {
	return TableRow{Entity: r.Entity, Values: slices.Clone(r.Values)}
}
