package schema

import (
	"errors"
	"fmt"
	"strings"

	"ejiview/pkg/contracts/domain"
)

// ErrorKind classifies a normalization failure.
type ErrorKind string

const (
	KindAmbiguousAlias ErrorKind = "AmbiguousAlias"
	KindNoEntityKey    ErrorKind = "NoEntityKey"
	KindDuplicateKey   ErrorKind = "DuplicateKey"
)

// Sentinels for errors.Is matching against a *NormalizationError.
var (
	ErrAmbiguousAlias = errors.New("ambiguous alias")
	ErrNoEntityKey    = errors.New("no entity key column")
	ErrDuplicateKey   = errors.New("duplicate entity key")
)

// NormalizationError identifies the offending alias, column or key.
type NormalizationError struct {
	Kind   ErrorKind
	Source string

	// Alias is the folded alias two metrics claim (AmbiguousAlias).
	Alias string
	// Metrics are the competing metrics (AmbiguousAlias).
	Metrics []domain.Metric
	// Candidates are the entity-key column names tried (NoEntityKey).
	Candidates []string
	// Key is the repeated entity key (DuplicateKey).
	Key string
}

func (e *NormalizationError) Error() string {
	var b strings.Builder
	b.WriteString("normalization failed")
	if e.Source != "" {
		fmt.Fprintf(&b, " for source %q", e.Source)
	}
	switch e.Kind {
	case KindAmbiguousAlias:
		fmt.Fprintf(&b, ": alias %q claimed by %v", e.Alias, e.Metrics)
	case KindNoEntityKey:
		fmt.Fprintf(&b, ": none of the entity key columns %q present", e.Candidates)
	case KindDuplicateKey:
		fmt.Fprintf(&b, ": entity key %q appears more than once", e.Key)
	default:
		fmt.Fprintf(&b, ": %s", e.Kind)
	}
	return b.String()
}

// Is matches the sentinel for the error's kind.
func (e *NormalizationError) Is(target error) bool {
	switch target {
	case ErrAmbiguousAlias:
		return e.Kind == KindAmbiguousAlias
	case ErrNoEntityKey:
		return e.Kind == KindNoEntityKey
	case ErrDuplicateKey:
		return e.Kind == KindDuplicateKey
	}
	return false
}

func ambiguousAlias(alias string, first, second domain.Metric) *NormalizationError {
	metrics := []domain.Metric{first, second}
	domain.SortMetrics(metrics)
	return &NormalizationError{Kind: KindAmbiguousAlias, Alias: alias, Metrics: metrics}
}

// DuplicateKeyError reports key as appearing more than once in source.
func DuplicateKeyError(source, key string) *NormalizationError {
	return &NormalizationError{Kind: KindDuplicateKey, Source: source, Key: key}
}
