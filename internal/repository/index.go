package repository

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"ejiview/pkg/contracts/domain"
)

// ErrUnknownSource is returned for a source name the repository does not hold.
var ErrUnknownSource = errors.New("unknown source")

// Repository is an immutable set of normalized tables keyed by source name.
// It is safe for concurrent use.
type Repository struct {
	tables map[string]*domain.NormalizedTable
	names  []string
}

// New indexes tables by their Source. Source names must be unique and
// non-empty.
func New(tables ...*domain.NormalizedTable) (*Repository, error) {
	r := &Repository{tables: make(map[string]*domain.NormalizedTable, len(tables))}
	for _, t := range tables {
		if t == nil {
			continue
		}
		if t.Source == "" {
			return nil, errors.New("table without source name")
		}
		if _, ok := r.tables[t.Source]; ok {
			return nil, fmt.Errorf("duplicate source %q", t.Source)
		}
		r.tables[t.Source] = t
		r.names = append(r.names, t.Source)
	}
	sort.Strings(r.names)
	return r, nil
}

// Sources lists source names in ascending order.
func (r *Repository) Sources() []string {
	return append([]string(nil), r.names...)
}

// Table returns the normalized table for source.
func (r *Repository) Table(source string) (*domain.NormalizedTable, bool) {
	t, ok := r.tables[source]
	return t, ok
}

// Len is the number of sources.
func (r *Repository) Len() int {
	return len(r.names)
}

// Lookup finds key in source using mode.
func (r *Repository) Lookup(source, key string, mode MatchMode) (domain.EntityRecord, bool, error) {
	t, ok := r.tables[source]
	if !ok {
		return domain.EntityRecord{}, false, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if mode == MatchNormalized {
		return LookupNormalized(t, key)
	}
	return Lookup(t, key)
}

// Keys yields the filtered keys of source, or nothing for an unknown source.
func (r *Repository) Keys(source string, all bool) iter.Seq[string] {
	t := r.tables[source]
	if all {
		return AllKeys(t)
	}
	return Keys(t)
}
