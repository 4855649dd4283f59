package store

import (
	"context"
	"fmt"
	"log/slog"

	"kuvert/internal/core"
)

// TransactionStore owns every persisted input of the derivation
// pipeline behind typed accessors. All reads fall back to typed empty
// defaults; every mutation bumps a revision counter that callers use to
// key memoized derivations.
type TransactionStore struct {
	kv KV
}

func New(kv KV) *TransactionStore {
	return &TransactionStore{kv: kv}
}

// Revision returns the current mutation counter. A fresh store is at 0.
func (s *TransactionStore) Revision(ctx context.Context) (int64, error) {
	var rev int64
	if err := s.kv.Load(ctx, KeyRevision, &rev); err != nil {
		return 0, fmt.Errorf("load revision: %w", err)
	}
	return rev, nil
}

func (s *TransactionStore) bump(ctx context.Context) error {
	rev, err := s.Revision(ctx)
	if err != nil {
		return err
	}
	if err := s.kv.Save(ctx, KeyRevision, rev+1); err != nil {
		return fmt.Errorf("save revision: %w", err)
	}
	return nil
}

// save persists one key and bumps the revision.
func (s *TransactionStore) save(ctx context.Context, key string, v any) error {
	if err := s.kv.Save(ctx, key, v); err != nil {
		return err
	}
	return s.bump(ctx)
}

// CSV files

func (s *TransactionStore) CSVFiles(ctx context.Context) ([]core.CSVFile, error) {
	var files []core.CSVFile
	if err := s.kv.Load(ctx, KeyCSVFiles, &files); err != nil {
		return nil, fmt.Errorf("load csv files: %w", err)
	}
	return files, nil
}

// AddCSVFile stores a bank export verbatim, replacing any previous file
// of the same name.
func (s *TransactionStore) AddCSVFile(ctx context.Context, f core.CSVFile) error {
	files, err := s.CSVFiles(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range files {
		if files[i].Name == f.Name {
			files[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		files = append(files, f)
	}
	if err := s.save(ctx, KeyCSVFiles, files); err != nil {
		return err
	}
	slog.InfoContext(ctx, "CSV file stored", "file", f.Name, "bytes", len(f.Content), "replaced", replaced)
	return nil
}

func (s *TransactionStore) RemoveCSVFile(ctx context.Context, name string) error {
	files, err := s.CSVFiles(ctx)
	if err != nil {
		return err
	}
	out := files[:0]
	for _, f := range files {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return s.save(ctx, KeyCSVFiles, out)
}

// Column mappings

func (s *TransactionStore) Mappings(ctx context.Context) (map[core.SchemaKey]core.ColumnMapping, error) {
	mappings := map[core.SchemaKey]core.ColumnMapping{}
	if err := s.kv.Load(ctx, KeyColumnMappings, &mappings); err != nil {
		return nil, fmt.Errorf("load column mappings: %w", err)
	}
	return mappings, nil
}

func (s *TransactionStore) SaveMapping(ctx context.Context, key core.SchemaKey, m core.ColumnMapping) error {
	mappings, err := s.Mappings(ctx)
	if err != nil {
		return err
	}
	mappings[key] = m
	if err := s.save(ctx, KeyColumnMappings, mappings); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Column mapping saved", "schema_key", string(key))
	return nil
}

// RemoveMapping retracts a schema's mapping. Rows of that schema stop
// projecting until remapped; that is the intended reset, not an error.
func (s *TransactionStore) RemoveMapping(ctx context.Context, key core.SchemaKey) error {
	mappings, err := s.Mappings(ctx)
	if err != nil {
		return err
	}
	delete(mappings, key)
	if err := s.save(ctx, KeyColumnMappings, mappings); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Column mapping removed", "schema_key", string(key))
	return nil
}

// Accounts

func (s *TransactionStore) OwnedAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := s.kv.Load(ctx, KeyOwnedAccounts, &accounts); err != nil {
		return nil, fmt.Errorf("load owned accounts: %w", err)
	}
	return accounts, nil
}

func (s *TransactionStore) SaveOwnedAccounts(ctx context.Context, accounts []string) error {
	return s.save(ctx, KeyOwnedAccounts, accounts)
}

func (s *TransactionStore) AccountLabels(ctx context.Context) (map[string]string, error) {
	labels := map[string]string{}
	if err := s.kv.Load(ctx, KeyAccountLabels, &labels); err != nil {
		return nil, fmt.Errorf("load account labels: %w", err)
	}
	return labels, nil
}

func (s *TransactionStore) SetAccountLabel(ctx context.Context, account, label string) error {
	labels, err := s.AccountLabels(ctx)
	if err != nil {
		return err
	}
	if label == "" {
		delete(labels, account)
	} else {
		labels[account] = label
	}
	return s.save(ctx, KeyAccountLabels, labels)
}

// Categories

func (s *TransactionStore) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.kv.Load(ctx, KeyCategories, &categories); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}

func (s *TransactionStore) SaveCategories(ctx context.Context, categories []string) error {
	return s.save(ctx, KeyCategories, categories)
}

func (s *TransactionStore) CategoryMap(ctx context.Context) (map[uint32]string, error) {
	m := map[uint32]string{}
	if err := s.kv.Load(ctx, KeyCategoryMap, &m); err != nil {
		return nil, fmt.Errorf("load category map: %w", err)
	}
	return m, nil
}

// SetCategory assigns a category to a transaction id. An empty category
// clears the assignment.
func (s *TransactionStore) SetCategory(ctx context.Context, id uint32, category string) error {
	m, err := s.CategoryMap(ctx)
	if err != nil {
		return err
	}
	if category == "" {
		delete(m, id)
	} else {
		m[id] = category
	}
	if err := s.save(ctx, KeyCategoryMap, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category assigned", "id", id, "category", category)
	return nil
}

// Budget posts

func (s *TransactionStore) BudgetPosts(ctx context.Context) ([]core.BudgetPost, error) {
	var posts []core.BudgetPost
	if err := s.kv.Load(ctx, KeyBudgetPosts, &posts); err != nil {
		return nil, fmt.Errorf("load budget posts: %w", err)
	}
	return posts, nil
}

func (s *TransactionStore) SaveBudgetPosts(ctx context.Context, posts []core.BudgetPost) error {
	for _, p := range posts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("budget post %q: %w", p.Title, err)
		}
	}
	return s.save(ctx, KeyBudgetPosts, posts)
}

// CategoryPosts maps category name to budget post title, many-to-one.
func (s *TransactionStore) CategoryPosts(ctx context.Context) (map[string]string, error) {
	m := map[string]string{}
	if err := s.kv.Load(ctx, KeyCategoryPosts, &m); err != nil {
		return nil, fmt.Errorf("load category budget posts: %w", err)
	}
	return m, nil
}

func (s *TransactionStore) AssignCategoryPost(ctx context.Context, category, postTitle string) error {
	m, err := s.CategoryPosts(ctx)
	if err != nil {
		return err
	}
	if postTitle == "" {
		delete(m, category)
	} else {
		m[category] = postTitle
	}
	return s.save(ctx, KeyCategoryPosts, m)
}

// Income envelope overrides

func (s *TransactionStore) IncomeEnvelopes(ctx context.Context) (map[uint32]core.Envelope, error) {
	m := map[uint32]core.Envelope{}
	if err := s.kv.Load(ctx, KeyIncomeEnvelopes, &m); err != nil {
		return nil, fmt.Errorf("load income envelopes: %w", err)
	}
	return m, nil
}

// SetIncomeEnvelope marks a transaction as income and pins it to an
// explicit envelope, overriding the date-derived one.
func (s *TransactionStore) SetIncomeEnvelope(ctx context.Context, id uint32, envelope core.Envelope) error {
	if _, err := core.ParseEnvelope(string(envelope)); err != nil {
		return err
	}
	m, err := s.IncomeEnvelopes(ctx)
	if err != nil {
		return err
	}
	m[id] = envelope
	if err := s.save(ctx, KeyIncomeEnvelopes, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Income envelope override set", "id", id, "envelope", string(envelope))
	return nil
}

func (s *TransactionStore) UnsetIncomeEnvelope(ctx context.Context, id uint32) error {
	m, err := s.IncomeEnvelopes(ctx)
	if err != nil {
		return err
	}
	delete(m, id)
	return s.save(ctx, KeyIncomeEnvelopes, m)
}

// Type overrides

func (s *TransactionStore) TypeOverrides(ctx context.Context) (map[uint32]core.TransactionType, error) {
	m := map[uint32]core.TransactionType{}
	if err := s.kv.Load(ctx, KeyTypeOverrides, &m); err != nil {
		return nil, fmt.Errorf("load type overrides: %w", err)
	}
	return m, nil
}

func (s *TransactionStore) SetTypeOverride(ctx context.Context, id uint32, typ core.TransactionType) error {
	if _, err := core.ParseTransactionType(string(typ)); err != nil {
		return err
	}
	m, err := s.TypeOverrides(ctx)
	if err != nil {
		return err
	}
	m[id] = typ
	if err := s.save(ctx, KeyTypeOverrides, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Type override set", "id", id, "type", string(typ))
	return nil
}

func (s *TransactionStore) UnsetTypeOverride(ctx context.Context, id uint32) error {
	m, err := s.TypeOverrides(ctx)
	if err != nil {
		return err
	}
	delete(m, id)
	return s.save(ctx, KeyTypeOverrides, m)
}

// Links

func (s *TransactionStore) Links(ctx context.Context) (map[uint32][]core.Link, error) {
	m := map[uint32][]core.Link{}
	if err := s.kv.Load(ctx, KeyLinks, &m); err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	return m, nil
}

// SetLink records a relationship between two transactions. Links are
// symmetric: both sides always carry the entry with the same type, and
// re-linking an existing pair updates the type on both sides.
func (s *TransactionStore) SetLink(ctx context.Context, a, b uint32, typ core.LinkType) error {
	if a == b {
		return fmt.Errorf("cannot link transaction %d to itself", a)
	}
	typ, err := core.ParseLinkType(string(typ))
	if err != nil {
		return err
	}
	m, err := s.Links(ctx)
	if err != nil {
		return err
	}
	m[a] = append(removeLink(m[a], b), core.Link{ID: b, Type: typ})
	m[b] = append(removeLink(m[b], a), core.Link{ID: a, Type: typ})
	if err := s.save(ctx, KeyLinks, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transactions linked", "a", a, "b", b, "link_type", string(typ))
	return nil
}

// UnsetLink removes the relationship from both sides.
func (s *TransactionStore) UnsetLink(ctx context.Context, a, b uint32) error {
	m, err := s.Links(ctx)
	if err != nil {
		return err
	}
	m[a] = removeLink(m[a], b)
	m[b] = removeLink(m[b], a)
	if len(m[a]) == 0 {
		delete(m, a)
	}
	if len(m[b]) == 0 {
		delete(m, b)
	}
	if err := s.save(ctx, KeyLinks, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transactions unlinked", "a", a, "b", b)
	return nil
}

func removeLink(links []core.Link, id uint32) []core.Link {
	out := links[:0]
	for _, l := range links {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

// Filters and exclusions

func (s *TransactionStore) Filters(ctx context.Context) ([]string, error) {
	var filters []string
	if err := s.kv.Load(ctx, KeyFilters, &filters); err != nil {
		return nil, fmt.Errorf("load filters: %w", err)
	}
	return filters, nil
}

func (s *TransactionStore) SaveFilters(ctx context.Context, filters []string) error {
	return s.save(ctx, KeyFilters, filters)
}

func (s *TransactionStore) ExclusionRules(ctx context.Context) ([]core.ExclusionRule, error) {
	var rules []core.ExclusionRule
	if err := s.kv.Load(ctx, KeyExclusionRules, &rules); err != nil {
		return nil, fmt.Errorf("load exclusion rules: %w", err)
	}
	return rules, nil
}

func (s *TransactionStore) SaveExclusionRules(ctx context.Context, rules []core.ExclusionRule) error {
	return s.save(ctx, KeyExclusionRules, rules)
}
