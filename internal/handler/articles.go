// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the oKB application.
package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/okb-go/internal/store"
)

// htmlSanitizer strips unsafe HTML from rendered article bodies.
// UGCPolicy allows the safe tag subset appropriate for authored content.
var htmlSanitizer = bluemonday.UGCPolicy()

// ArticleHandler serves the read API for knowledge base articles.
type ArticleHandler struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewArticleHandler creates an article handler.
func NewArticleHandler(db *sql.DB, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		queries: store.New(db),
		logger:  logger,
	}
}

// ArticleView is the JSON shape of a single article.
type ArticleView struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
	HTML   string `json:"html,omitempty"`
}

// Get handles GET /api/articles/{id}. The body is stored as markdown
// and rendered to sanitized HTML on the way out.
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := h.queries.GetArticleByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "article not found")
			return
		}
		h.logger.Error("article load failed", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot load article")
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(article.Body), &buf); err != nil {
		h.logger.Error("article render failed", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot render article")
		return
	}

	writeJSONSuccess(w, map[string]any{
		"article": ArticleView{
			ID:     article.ID,
			Title:  article.Title,
			Slug:   article.Slug,
			Status: article.Status,
			HTML:   htmlSanitizer.Sanitize(buf.String()),
		},
	})
}

// ListByTerm handles GET /api/terms/{id}/articles with limit/offset
// paging. Ordering is stable by article id, the same ordering the
// migration cursor relies on.
func (h *ArticleHandler) ListByTerm(w http.ResponseWriter, r *http.Request) {
	termID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid term id")
		return
	}

	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := int64(0)
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			offset = n
		}
	}

	ctx := r.Context()

	total, err := h.queries.CountArticlesByTerm(ctx, termID)
	if err != nil {
		h.logger.Error("article count failed", "term_id", termID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot count articles")
		return
	}

	articles, err := h.queries.ListArticlesByTerm(ctx, termID, limit, offset)
	if err != nil {
		h.logger.Error("article list failed", "term_id", termID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot list articles")
		return
	}

	views := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, ArticleView{
			ID:     a.ID,
			Title:  a.Title,
			Slug:   a.Slug,
			Status: a.Status,
		})
	}

	writeJSONSuccess(w, map[string]any{
		"articles": views,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
