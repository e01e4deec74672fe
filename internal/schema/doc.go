// Package schema maps heterogeneous EJI source tables onto the canonical
// metric schema.
//
// Raw column names are folded (NFKC, case folding, whitespace removed) and
// resolved through a versioned alias table. The entity-key column is chosen
// from an ordered candidate list and renamed to entity_key. Aggregate rows
// are excluded and metric cells are coerced to numbers or the missing marker.
//
// Normalization is pure: the raw table is never modified, and failures are
// returned as *NormalizationError values matching ErrAmbiguousAlias,
// ErrNoEntityKey or ErrDuplicateKey.
package schema
