package schema

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"ejiview/pkg/contracts/domain"
)

// DefaultNoDataValue is the EJI convention for a suppressed estimate.
const DefaultNoDataValue = -999

var (
	// decimalPattern is plain decimal notation with an optional exponent.
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	// groupedPattern is a number with comma thousands grouping.
	groupedPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// Options tunes cell coercion and summary-row detection.
type Options struct {
	// NoDataValues are numbers that mean "no value" in the source.
	NoDataValues []float64
	// SummaryMarkers are words marking an untagged row's key as an aggregate.
	SummaryMarkers []string
}

// DefaultOptions treats -999 as missing and "count" rows as summaries.
func DefaultOptions() Options {
	return Options{
		NoDataValues:   []float64{DefaultNoDataValue},
		SummaryMarkers: []string{"count"},
	}
}

// Normalize maps raw onto the canonical metric schema with default options.
// A nil alias table means the embedded default.
func Normalize(raw *domain.RawTable, aliases *AliasTable, keyCandidates []string) (*domain.NormalizedTable, error) {
	return NormalizeWithOptions(raw, aliases, keyCandidates, DefaultOptions())
}

type metricColumn struct {
	name   string
	metric domain.Metric
}

// NormalizeWithOptions maps raw onto the canonical metric schema. The input
// table is not modified.
func NormalizeWithOptions(raw *domain.RawTable, aliases *AliasTable, keyCandidates []string, opts Options) (*domain.NormalizedTable, error) {
	if raw == nil {
		raw = &domain.RawTable{}
	}
	if aliases == nil {
		aliases = DefaultAliases()
	}

	idx, err := aliases.index()
	if err != nil {
		var ne *NormalizationError
		if errors.As(err, &ne) {
			ne.Source = raw.Source
		}
		return nil, err
	}

	columns := raw.ColumnOrder()
	candidates := append(append([]string(nil), keyCandidates...), domain.EntityKeyColumn)
	keyColumn, ok := resolveKeyColumn(columns, candidates)
	if !ok {
		return nil, &NormalizationError{Kind: KindNoEntityKey, Source: raw.Source, Candidates: candidates}
	}

	out := &domain.NormalizedTable{
		Source:       raw.Source,
		KeyColumn:    keyColumn,
		AliasVersion: aliases.Version,
	}

	var mapped []metricColumn
	claimed := make(map[domain.Metric]bool)
	for _, col := range columns {
		if col == keyColumn {
			continue
		}
		m, ok := idx[FoldName(col)]
		if !ok || claimed[m] {
			out.DroppedColumns = append(out.DroppedColumns, col)
			continue
		}
		claimed[m] = true
		mapped = append(mapped, metricColumn{name: col, metric: m})
		out.Metrics = append(out.Metrics, m)
	}
	domain.SortMetrics(out.Metrics)

	markers := make(map[string]bool, len(opts.SummaryMarkers))
	for _, marker := range opts.SummaryMarkers {
		markers[foldKey(marker)] = true
	}

	seen := make(map[string]bool, len(raw.Rows))
	out.Rows = make([]domain.NormalizedRow, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		key, ok := keyString(row.Cells[keyColumn])
		if !ok || isSummaryRow(row.Kind, key, markers) {
			out.ExcludedRows++
			continue
		}
		if seen[key] {
			return nil, DuplicateKeyError(raw.Source, key)
		}
		seen[key] = true

		values := make(map[domain.Metric]domain.Value, len(mapped))
		for _, mc := range mapped {
			values[mc.metric] = coerce(row.Cells[mc.name], opts.NoDataValues)
		}
		out.Rows = append(out.Rows, domain.NormalizedRow{EntityKey: key, Values: values})
	}

	return out, nil
}

// resolveKeyColumn tries candidates in order; for each, an exact column name
// beats a folded match.
func resolveKeyColumn(columns, candidates []string) (string, bool) {
	folded := make(map[string]string, len(columns))
	exact := make(map[string]bool, len(columns))
	for _, col := range columns {
		exact[col] = true
		f := FoldName(col)
		if _, ok := folded[f]; !ok {
			folded[f] = col
		}
	}
	for _, cand := range candidates {
		if exact[cand] {
			return cand, true
		}
		if col, ok := folded[FoldName(cand)]; ok {
			return col, true
		}
	}
	return "", false
}

func isSummaryRow(kind domain.RowKind, key string, markers map[string]bool) bool {
	switch kind {
	case domain.RowKindAggregate:
		return true
	case domain.RowKindEntity:
		return false
	}
	for _, tok := range keyTokens(key) {
		if markers[tok] {
			return true
		}
	}
	return false
}

// keyString renders an entity-key cell with surrounding whitespace
// trimmed. Blank keys are rejected.
func keyString(cell any) (string, bool) {
	var key string
	switch v := cell.(type) {
	case nil:
		return "", false
	case string:
		key = v
	case []byte:
		key = string(v)
	case float64:
		key = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		key = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		key = strconv.Itoa(v)
	case int64:
		key = strconv.FormatInt(v, 10)
	case int32:
		key = strconv.FormatInt(int64(v), 10)
	case int16:
		key = strconv.FormatInt(int64(v), 10)
	case int8:
		key = strconv.FormatInt(int64(v), 10)
	case uint:
		key = strconv.FormatUint(uint64(v), 10)
	case uint64:
		key = strconv.FormatUint(v, 10)
	case uint32:
		key = strconv.FormatUint(uint64(v), 10)
	case uint16:
		key = strconv.FormatUint(uint64(v), 10)
	case uint8:
		key = strconv.FormatUint(uint64(v), 10)
	case json.Number:
		key = v.String()
	default:
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	return key, true
}

// coerce turns a raw cell into a metric value. Anything that is not a finite
// number, or is a no-data value, becomes missing.
func coerce(cell any, noData []float64) domain.Value {
	var f float64
	switch v := cell.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		return coerce(v.String(), noData)
	case []byte:
		return coerce(string(v), noData)
	case string:
		s := strings.TrimSpace(v)
		if groupedPattern.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		}
		if !decimalPattern.MatchString(s) {
			return domain.Missing
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Missing
		}
		f = parsed
	default:
		return domain.Missing
	}

	val := domain.Number(f)
	if !val.Valid {
		return domain.Missing
	}
	for _, nd := range noData {
		if f == nd {
			return domain.Missing
		}
	}
	return val
}
