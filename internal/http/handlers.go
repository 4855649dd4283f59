package http

import (
	"fmt"
	"net/http"
	"strconv"

	"kuvert/internal/aggregate"
	"kuvert/internal/core"
	"kuvert/internal/filterexpr"
	"kuvert/internal/schema"
)

// CSV files

type fileInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.CSVFiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, fileInfo{Name: f.Name, Size: len(f.Content)})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request) {
	var f core.CSVFile
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if f.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("file name is required"))
		return
	}
	if err := s.store.AddCSVFile(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	writeJSON(w, http.StatusCreated, fileInfo{Name: f.Name, Size: len(f.Content)})
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveCSVFile(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Schemas and column mappings

type schemaInfo struct {
	Key     core.SchemaKey `json:"key"`
	Columns []string       `json:"columns"`
}

type schemasResponse struct {
	Mapped   map[core.SchemaKey]core.ColumnMapping `json:"mapped"`
	Unmapped []schemaInfo                          `json:"unmapped"`
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.store.Mappings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	snap, err := s.derivation.Derive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := schemasResponse{Mapped: mappings, Unmapped: make([]schemaInfo, 0, len(snap.Unmapped))}
	for _, key := range snap.Unmapped {
		resp.Unmapped = append(resp.Unmapped, schemaInfo{Key: key, Columns: schema.Columns(key)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveMapping(w http.ResponseWriter, r *http.Request) {
	key := core.SchemaKey(r.PathValue("key"))
	var m core.ColumnMapping
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := schema.Validate(key, m); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.store.SaveMapping(r.Context(), key, m); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveMapping(r.Context(), core.SchemaKey(r.PathValue("key"))); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Transactions

type transactionsResponse struct {
	Revision     int64              `json:"revision"`
	Transactions []core.Transaction `json:"transactions"`
	Warnings     []string           `json:"warnings,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.derivation.Derive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := transactionsResponse{
		Revision:     snap.Revision,
		Transactions: snap.Transactions,
	}
	for _, warn := range snap.Warnings {
		resp.Warnings = append(resp.Warnings, warn.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SetCategory(r.Context(), id, req.Category); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.store.SetTypeOverride(r.Context(), id, typ); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsetType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UnsetTypeOverride(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetIncomeEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Envelope string `json:"envelope"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	envelope, err := core.ParseEnvelope(req.Envelope)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.store.SetIncomeEnvelope(r.Context(), id, envelope); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsetIncomeEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UnsetIncomeEnvelope(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Links

func (s *Server) handleSetLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		A    uint32 `json:"a"`
		B    uint32 `json:"b"`
		Type string `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	typ, err := core.ParseLinkType(req.Type)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.store.SetLink(r.Context(), req.A, req.B, typ); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsetLink(w http.ResponseWriter, r *http.Request) {
	a, err := strconv.ParseUint(r.PathValue("a"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid transaction id %q", r.PathValue("a")))
		return
	}
	b, err := strconv.ParseUint(r.PathValue("b"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid transaction id %q", r.PathValue("b")))
		return
	}
	if err := s.store.UnsetLink(r.Context(), uint32(a), uint32(b)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Accounts

type accountsResponse struct {
	Owned  []string          `json:"owned"`
	Labels map[string]string `json:"labels"`
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	owned, err := s.store.OwnedAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	labels, err := s.store.AccountLabels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsResponse{Owned: owned, Labels: labels})
}

func (s *Server) handleSaveOwnedAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []string
	if err := decodeJSON(r, &accounts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveOwnedAccounts(r.Context(), accounts); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAccountLabel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		Label   string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("account is required"))
		return
	}
	if err := s.store.SetAccountLabel(r.Context(), req.Account, req.Label); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Categories

type categoriesResponse struct {
	Categories []string          `json:"categories"`
	Posts      map[string]string `json:"posts"`
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	posts, err := s.store.CategoryPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories, Posts: posts})
}

func (s *Server) handleSaveCategories(w http.ResponseWriter, r *http.Request) {
	var categories []string
	if err := decodeJSON(r, &categories); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveCategories(r.Context(), categories); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignCategoryPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Post string `json:"post"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.AssignCategoryPost(r.Context(), r.PathValue("name"), req.Post); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Budget posts

func (s *Server) handleGetBudgetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.BudgetPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleSaveBudgetPosts(w http.ResponseWriter, r *http.Request) {
	var posts []core.BudgetPost
	if err := decodeJSON(r, &posts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveBudgetPosts(r.Context(), posts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Filters and exclusions

type filtersResponse struct {
	Filters []string `json:"filters"`
	Invalid []string `json:"invalid,omitempty"`
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.Filters(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := filtersResponse{Filters: sources}
	_, errs := filterexpr.CompileAll(sources)
	for _, cerr := range errs {
		resp.Invalid = append(resp.Invalid, cerr.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveFilters(w http.ResponseWriter, r *http.Request) {
	var sources []string
	if err := decodeJSON(r, &sources); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveFilters(r.Context(), sources); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetExclusions(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ExclusionRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleSaveExclusions(w http.ResponseWriter, r *http.Request) {
	var rules []core.ExclusionRule
	if err := decodeJSON(r, &rules); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SaveExclusionRules(r.Context(), rules); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.derivation.NotifyChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Reports

func (s *Server) handleTotalsReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.derivation.Derive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.ComputeTotals(snap.Transactions))
}

// handleEnvelopeReport serves the worker-persisted report when one
// exists, otherwise it computes the report on the spot.
func (s *Server) handleEnvelopeReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.EnvelopeReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(report) == 0 {
		snap, err := s.derivation.Derive(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		report = aggregate.PerEnvelope(snap.Transactions, aggregate.DistinctEnvelopes(snap.Transactions))
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAveragesReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.derivation.Derive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.ComputeAverages(snap.Transactions))
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.derivation.Derive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	posts, err := s.store.BudgetPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	categoryPosts, err := s.store.CategoryPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	envelopeCount := len(aggregate.DistinctEnvelopes(snap.Transactions))
	if v := r.URL.Query().Get("envelopes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid envelopes parameter %q", v))
			return
		}
		envelopeCount = n
	}

	lines := aggregate.BudgetVariance(posts, categoryPosts, snap.Transactions, envelopeCount)
	writeJSON(w, http.StatusOK, lines)
}
