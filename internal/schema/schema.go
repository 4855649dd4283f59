// Package schema derives stable keys from CSV column layouts and tracks
// which layouts still lack a user-declared column mapping.
package schema

import (
	"sort"
	"strings"

	"kuvert/internal/core"
)

// keySeparator joins sorted column names into a SchemaKey. Column names
// containing the separator are rare enough in bank exports that the
// resulting ambiguity is accepted.
const keySeparator = "|"

// KeyOf derives the schema key of a row from its column-name set.
// Reserved fields are excluded, so rows from the same header row always
// share a key regardless of which file or import batch they came from.
func KeyOf(row core.RawRow) core.SchemaKey {
	cols := row.Columns()
	sort.Strings(cols)
	return core.SchemaKey(strings.Join(cols, keySeparator))
}

// Columns recovers the (sorted) column names encoded in a key.
func Columns(key core.SchemaKey) []string {
	if key == "" {
		return nil
	}
	return strings.Split(string(key), keySeparator)
}

// Unmapped returns the schema keys present in rows that have no entry in
// mappings, sorted and deduplicated.
func Unmapped(rows []core.RawRow, mappings map[core.SchemaKey]core.ColumnMapping) []core.SchemaKey {
	seen := make(map[core.SchemaKey]struct{})
	var out []core.SchemaKey
	for _, row := range rows {
		key := KeyOf(row)
		if _, ok := mappings[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks that a mapping only references columns of its schema.
// A partially empty mapping is rejected: all five canonical fields must
// be assigned before rows can be projected.
func Validate(key core.SchemaKey, m core.ColumnMapping) error {
	cols := make(map[string]struct{})
	for _, c := range Columns(key) {
		cols[c] = struct{}{}
	}
	for _, field := range []string{m.From, m.To, m.Posting, m.Amount, m.Date} {
		if strings.TrimSpace(field) == "" {
			return core.ErrIncompleteMapping
		}
		if _, ok := cols[field]; !ok {
			return core.ErrUnknownColumn
		}
	}
	return nil
}
