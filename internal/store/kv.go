// Package store persists the override maps and raw CSV blobs the
// derivation pipeline runs on. Everything goes through a small
// key/value port; derived data is never stored here, only the inputs
// the pipeline recomputes from.
package store

import (
	"context"
)

// Persisted keys. Values are JSON blobs.
const (
	KeyCSVFiles        = "csv_files"
	KeyColumnMappings  = "column_mappings"
	KeyOwnedAccounts   = "owned_accounts"
	KeyAccountLabels   = "account_labels"
	KeyCategories      = "categories"
	KeyCategoryMap     = "category_map"
	KeyBudgetPosts     = "budget_posts"
	KeyCategoryPosts   = "category_budget_posts"
	KeyIncomeEnvelopes = "income_envelopes"
	KeyLinks           = "transaction_links"
	KeyTypeOverrides   = "type_overrides"
	KeyFilters         = "filters"
	KeyExclusionRules  = "exclusion_rules"
	KeyRevision        = "revision"
	KeyEnvelopeReport  = "envelope_report"
)

// KV is the persistence port. Load unmarshals the value stored under key
// into v and leaves v untouched when the key is absent or its stored
// value is corrupt: the caller's zero value is the documented fallback,
// and no storage problem ever propagates as a hard failure of a read.
// Save persists v, replacing any previous value.
type KV interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}
