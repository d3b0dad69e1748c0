// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
)

// TermStore is the slice of the taxonomy store the migration needs.
type TermStore interface {
	TopLevelTerms(ctx context.Context, taxonomy string) ([]model.Term, error)
	ChildTerms(ctx context.Context, parentID int64) ([]model.Term, error)
	TermByID(ctx context.Context, id int64) (model.Term, error)
	TermBySlug(ctx context.Context, taxonomy, slug string) (model.Term, error)
	CreateTerm(ctx context.Context, taxonomy, name, slug, description string) (model.Term, error)
	DeleteTerm(ctx context.Context, id int64) error
	SetTermMeta(ctx context.Context, termID int64, key, value string) error
}

// ArticleStore is the slice of the content store the migration needs.
type ArticleStore interface {
	ArticleIDsByTerm(ctx context.Context, termID int64, limit, offset int) ([]int64, error)
	CountArticlesByTerm(ctx context.Context, termID int64) (int, error)
	AssignTerm(ctx context.Context, articleID, termID int64) error
}

// OptionStore persists durable flags that outlive the run, such as the
// completion marker.
type OptionStore interface {
	Option(ctx context.Context, key string) (string, error)
	SetOption(ctx context.Context, key, value string) error
}

// ErrTermNotFound is returned by TermBySlug when no term matches.
var ErrTermNotFound = errors.New("term not found")

// SQLStores adapts the store.Queries layer to the narrow interfaces the
// state machine consumes.
type SQLStores struct {
	q *store.Queries
}

// NewSQLStores wraps a database handle for use by the migration.
func NewSQLStores(db *sql.DB) *SQLStores {
	return &SQLStores{q: store.New(db)}
}

// TopLevelTerms returns the root terms of a taxonomy.
func (s *SQLStores) TopLevelTerms(ctx context.Context, taxonomy string) ([]model.Term, error) {
	return s.q.ListTopLevelTerms(ctx, taxonomy)
}

// ChildTerms returns the direct children of a term.
func (s *SQLStores) ChildTerms(ctx context.Context, parentID int64) ([]model.Term, error) {
	return s.q.ListChildTerms(ctx, parentID)
}

// TermByID loads a single term.
func (s *SQLStores) TermByID(ctx context.Context, id int64) (model.Term, error) {
	term, err := s.q.GetTermByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Term{}, ErrTermNotFound
	}
	return term, err
}

// TermBySlug looks a term up by slug within a taxonomy.
func (s *SQLStores) TermBySlug(ctx context.Context, taxonomy, slug string) (model.Term, error) {
	term, err := s.q.GetTermBySlug(ctx, taxonomy, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Term{}, ErrTermNotFound
	}
	return term, err
}

// CreateTerm creates a root term in a taxonomy.
func (s *SQLStores) CreateTerm(ctx context.Context, taxonomy, name, slug, description string) (model.Term, error) {
	return s.q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy:    taxonomy,
		Name:        name,
		Slug:        slug,
		Description: description,
	})
}

// DeleteTerm removes a term; associations and meta cascade in storage.
func (s *SQLStores) DeleteTerm(ctx context.Context, id int64) error {
	return s.q.DeleteTerm(ctx, id)
}

// SetTermMeta upserts a meta value on a term.
func (s *SQLStores) SetTermMeta(ctx context.Context, termID int64, key, value string) error {
	return s.q.SetTermMeta(ctx, termID, key, value)
}

// ArticleIDsByTerm returns a stable page of article ids for a term.
func (s *SQLStores) ArticleIDsByTerm(ctx context.Context, termID int64, limit, offset int) ([]int64, error) {
	return s.q.ListArticleIDsByTerm(ctx, store.ListArticleIDsByTermParams{
		TermID: termID,
		Limit:  int64(limit),
		Offset: int64(offset),
	})
}

// CountArticlesByTerm counts the articles directly associated with a term.
func (s *SQLStores) CountArticlesByTerm(ctx context.Context, termID int64) (int, error) {
	n, err := s.q.CountArticlesByTerm(ctx, termID)
	return int(n), err
}

// AssignTerm associates an article with a term. Repeating the call is a
// no-op in storage.
func (s *SQLStores) AssignTerm(ctx context.Context, articleID, termID int64) error {
	return s.q.AssignArticleTerm(ctx, articleID, termID)
}

// Option returns a config value, or "" when the key is absent.
func (s *SQLStores) Option(ctx context.Context, key string) (string, error) {
	return s.q.GetConfigValue(ctx, key)
}

// SetOption upserts a config value.
func (s *SQLStores) SetOption(ctx context.Context, key, value string) error {
	return s.q.SetConfig(ctx, store.SetConfigParams{
		Key:   key,
		Value: value,
		Type:  model.ConfigTypeString,
	})
}
