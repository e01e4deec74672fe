package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"ejiview/pkg/contracts/domain"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// AliasEntry lists the raw column names known to mean one metric.
type AliasEntry struct {
	Metric  domain.Metric `yaml:"metric" json:"metric"`
	Aliases []string      `yaml:"aliases" json:"aliases"`
}

// AliasTable is the versioned, declarative mapping from raw column names to
// canonical metrics. Canonical identifiers are implicit self-aliases.
type AliasTable struct {
	Version string       `yaml:"version" json:"version"`
	Entries []AliasEntry `yaml:"metrics" json:"metrics"`
}

var (
	defaultOnce  sync.Once
	defaultTable *AliasTable
)

// DefaultAliases returns a copy of the embedded alias table.
func DefaultAliases() *AliasTable {
	defaultOnce.Do(func() {
		table, err := ParseAliases(defaultAliasesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded alias table: %v", err))
		}
		defaultTable = table
	})
	return defaultTable.Clone()
}

// ParseAliases decodes and validates a YAML alias table.
func ParseAliases(data []byte) (*AliasTable, error) {
	var table AliasTable
	if err := yaml.UnmarshalStrict(data, &table); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadAliasFile reads an alias table from path.
func LoadAliasFile(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	table, err := ParseAliases(data)
	if err != nil {
		return nil, fmt.Errorf("alias file %s: %w", path, err)
	}
	return table, nil
}

// Validate checks that every entry names a canonical metric and that no
// folded alias is claimed by two metrics.
func (t *AliasTable) Validate() error {
	_, err := t.index()
	return err
}

// Resolve returns the metric a raw column name maps to.
func (t *AliasTable) Resolve(column string) (domain.Metric, bool, error) {
	idx, err := t.index()
	if err != nil {
		return "", false, err
	}
	m, ok := idx[FoldName(column)]
	return m, ok, nil
}

// Clone returns a deep copy.
func (t *AliasTable) Clone() *AliasTable {
	out := &AliasTable{Version: t.Version, Entries: make([]AliasEntry, len(t.Entries))}
	for i, e := range t.Entries {
		out.Entries[i] = AliasEntry{Metric: e.Metric, Aliases: append([]string(nil), e.Aliases...)}
	}
	return out
}

// index builds the folded-alias lookup. Canonical identifiers are added
// first, then each entry's aliases in table order.
func (t *AliasTable) index() (map[string]domain.Metric, error) {
	idx := make(map[string]domain.Metric)
	claim := func(alias string, m domain.Metric) error {
		folded := FoldName(alias)
		if folded == "" {
			return nil
		}
		if prev, ok := idx[folded]; ok && prev != m {
			return ambiguousAlias(folded, prev, m)
		}
		idx[folded] = m
		return nil
	}

	for _, m := range domain.Metrics() {
		if err := claim(string(m), m); err != nil {
			return nil, err
		}
	}
	for _, e := range t.Entries {
		if !e.Metric.Valid() {
			return nil, fmt.Errorf("alias table: unknown metric %q", e.Metric)
		}
		for _, alias := range e.Aliases {
			if err := claim(alias, e.Metric); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}
