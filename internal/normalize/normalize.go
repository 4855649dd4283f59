package normalize

import (
	"fmt"
	"strings"

	"kuvert/internal/core"
)

// Deduplicate drops rows whose non-reserved content already occurred,
// keeping the first occurrence and preserving order. Two statement
// exports covering overlapping periods therefore never double-count a
// shared transaction, regardless of which file each copy came from.
func Deduplicate(rows []core.RawRow) []core.RawRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]core.RawRow, 0, len(rows))
	for _, row := range rows {
		key := string(canonical(row))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Project maps a raw row through its schema's column mapping into a
// MappedRow. The second return is false when the row cannot be projected
// (unparseable amount); the caller decides whether that warrants a
// warning. Callers are expected to only pass rows whose schema has a
// mapping.
func Project(row core.RawRow, mapping core.ColumnMapping) (core.MappedRow, bool) {
	amount, err := core.ParseAmount(row[mapping.Amount])
	if err != nil {
		return core.MappedRow{}, false
	}
	return core.MappedRow{
		ID:     Hash(row),
		Date:   row[mapping.Date],
		Text:   row[mapping.Posting],
		From:   row[mapping.From],
		To:     row[mapping.To],
		Amount: amount,
		Row:    row,
	}, true
}

// ProjectAll projects every row whose schema has a mapping. keyOf is
// injected (callers pass schema.KeyOf) so this package stays free of a
// schema dependency. Rows without a mapping are skipped silently, they
// surface via the unmapped-schemas list; unparseable rows produce
// warnings.
func ProjectAll(rows []core.RawRow, keyOf func(core.RawRow) core.SchemaKey, mappings map[core.SchemaKey]core.ColumnMapping) ([]core.MappedRow, []Warning) {
	var (
		mapped   []core.MappedRow
		warnings []Warning
	)
	for _, row := range rows {
		mapping, ok := mappings[keyOf(row)]
		if !ok {
			continue
		}
		m, ok := Project(row, mapping)
		if !ok {
			warnings = append(warnings, Warning{
				File:    row.File(),
				Message: fmt.Sprintf("unparseable amount %q, row skipped", row[mapping.Amount]),
			})
			continue
		}
		mapped = append(mapped, m)
	}
	return mapped, warnings
}

// ApplyExclusions drops mapped rows matching a persisted exclusion rule:
// the rule's account equals the row's from-account and the row text
// contains one of the rule's substrings, case-insensitively. Accounts
// without a rule pass through untouched.
func ApplyExclusions(rows []core.MappedRow, rules []core.ExclusionRule) []core.MappedRow {
	if len(rules) == 0 {
		return rows
	}
	byAccount := make(map[string][]string, len(rules))
	for _, r := range rules {
		byAccount[r.Account] = append(byAccount[r.Account], r.Substrings...)
	}
	out := make([]core.MappedRow, 0, len(rows))
	for _, row := range rows {
		if excluded(row, byAccount) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func excluded(row core.MappedRow, byAccount map[string][]string) bool {
	subs, ok := byAccount[row.From]
	if !ok {
		return false
	}
	text := strings.ToLower(row.Text)
	for _, s := range subs {
		if s == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
