// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
)

// TaxonomyHandler serves the read API for sections and products.
type TaxonomyHandler struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewTaxonomyHandler creates a taxonomy handler.
func NewTaxonomyHandler(db *sql.DB, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		queries: store.New(db),
		logger:  logger,
	}
}

// TermView is the JSON shape of a taxonomy term.
type TermView struct {
	ID          int64      `json:"id"`
	Taxonomy    string     `json:"taxonomy"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	ProductID   *int64     `json:"product_id,omitempty"`
	Children    []TermView `json:"children,omitempty"`
}

func toTermView(t model.Term) TermView {
	v := TermView{
		ID:          t.ID,
		Taxonomy:    t.Taxonomy,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
	}
	if t.ParentID.Valid {
		id := t.ParentID.Int64
		v.ParentID = &id
	}
	return v
}

// validTaxonomy guards URL input against arbitrary taxonomy names.
func validTaxonomy(taxonomy string) bool {
	switch taxonomy {
	case model.TaxonomySection, model.TaxonomyProduct, model.TaxonomyTag:
		return true
	}
	return false
}

// Tree handles GET /api/taxonomy/{taxonomy}/tree and returns the full
// term hierarchy, roots first, children nested. Sections that were
// mapped onto a product during migration carry their product_id.
func (h *TaxonomyHandler) Tree(w http.ResponseWriter, r *http.Request) {
	taxonomy := chi.URLParam(r, "taxonomy")
	if !validTaxonomy(taxonomy) {
		writeJSONError(w, http.StatusBadRequest, "unknown taxonomy")
		return
	}

	ctx := r.Context()

	roots, err := h.queries.ListTopLevelTerms(ctx, taxonomy)
	if err != nil {
		h.logger.Error("taxonomy tree load failed", "taxonomy", taxonomy, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot load taxonomy")
		return
	}

	views := make([]TermView, 0, len(roots))
	for _, root := range roots {
		view, err := h.buildSubtree(r, root, 0)
		if err != nil {
			h.logger.Error("taxonomy subtree load failed", "term_id", root.ID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "cannot load taxonomy")
			return
		}
		views = append(views, view)
	}

	writeJSONSuccess(w, map[string]any{
		"taxonomy": taxonomy,
		"terms":    views,
	})
}

// maxTreeDepth bounds subtree recursion against malformed hierarchies.
const maxTreeDepth = 32

func (h *TaxonomyHandler) buildSubtree(r *http.Request, term model.Term, depth int) (TermView, error) {
	view := toTermView(term)
	h.attachProductID(r, &view)

	if depth >= maxTreeDepth {
		return view, nil
	}

	children, err := h.queries.ListChildTerms(r.Context(), term.ID)
	if err != nil {
		return view, err
	}
	for _, child := range children {
		childView, err := h.buildSubtree(r, child, depth+1)
		if err != nil {
			return view, err
		}
		view.Children = append(view.Children, childView)
	}
	return view, nil
}

// attachProductID loads the product link meta written by the migration,
// if any. Absence is the normal case and not an error.
func (h *TaxonomyHandler) attachProductID(r *http.Request, view *TermView) {
	if view.Taxonomy != model.TaxonomySection {
		return
	}
	value, err := h.queries.GetTermMeta(r.Context(), view.ID, model.TermMetaProductID)
	if err != nil {
		return
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		view.ProductID = &id
	}
}

// Get handles GET /api/terms/{id}.
func (h *TaxonomyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid term id")
		return
	}

	term, err := h.queries.GetTermByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "term not found")
			return
		}
		h.logger.Error("term load failed", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot load term")
		return
	}

	view := toTermView(term)
	h.attachProductID(r, &view)

	writeJSONSuccess(w, map[string]any{"term": view})
}
