// Package repository indexes normalized EJI tables by entity key.
//
// Lookups build a fresh EntityRecord per call and never return more than one
// record. An entity that is absent is reported through the found result, not
// as an error.
package repository

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"ejiview/internal/schema"
	"ejiview/pkg/contracts/domain"
)

// MatchMode selects how a lookup compares keys.
type MatchMode int

const (
	// MatchExact compares entity keys byte for byte.
	MatchExact MatchMode = iota
	// MatchNormalized trims and lowercases both sides first.
	MatchNormalized
)

// ParseMatchMode maps "exact" and "normalized" to a mode. Empty means exact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "normalized":
		return MatchNormalized, nil
	default:
		return MatchExact, fmt.Errorf("unknown match mode %q", s)
	}
}

func (m MatchMode) String() string {
	if m == MatchNormalized {
		return "normalized"
	}
	return "exact"
}

// Lookup finds key by exact, case-sensitive match.
func Lookup(t *domain.NormalizedTable, key string) (domain.EntityRecord, bool, error) {
	return lookup(t, key, func(k string) bool { return k == key })
}

// LookupNormalized finds key ignoring surrounding whitespace and case.
func LookupNormalized(t *domain.NormalizedTable, key string) (domain.EntityRecord, bool, error) {
	want := normalizeKey(key)
	return lookup(t, key, func(k string) bool { return normalizeKey(k) == want })
}

func lookup(t *domain.NormalizedTable, key string, match func(string) bool) (domain.EntityRecord, bool, error) {
	if t == nil {
		return domain.EntityRecord{}, false, nil
	}
	var hit *domain.NormalizedRow
	for i := range t.Rows {
		row := &t.Rows[i]
		if !match(row.EntityKey) {
			continue
		}
		if hit != nil {
			return domain.EntityRecord{}, false, schema.DuplicateKeyError(t.Source, key)
		}
		hit = row
	}
	if hit == nil {
		return domain.EntityRecord{}, false, nil
	}
	return domain.NewEntityRecord(t.Source, hit.EntityKey, hit.Values), true, nil
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Keys yields the table's entity keys sorted case-insensitively and
// deduplicated. Entities whose every metric is missing are skipped.
// The sequence can be ranged over any number of times.
//
// Deduplication is by exact key, matching the case-sensitive Lookup: "Taos"
// and "taos" are two entities and both are yielded, "Taos" first. Repeated
// identical keys only occur in tables built without Normalize.
func Keys(t *domain.NormalizedTable) iter.Seq[string] {
	return keys(t, true)
}

// AllKeys is Keys without the all-missing filter.
func AllKeys(t *domain.NormalizedTable) iter.Seq[string] {
	return keys(t, false)
}

func keys(t *domain.NormalizedTable, skipEmpty bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		if t == nil {
			return
		}
		var out []string
		for _, row := range t.Rows {
			if skipEmpty && row.AllMissing() {
				continue
			}
			out = append(out, row.EntityKey)
		}
		sort.Slice(out, func(i, j int) bool {
			li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
			if li != lj {
				return li < lj
			}
			return out[i] < out[j]
		})
		for i, k := range out {
			if i > 0 && out[i-1] == k {
				continue
			}
			if !yield(k) {
				return
			}
		}
	}
}
