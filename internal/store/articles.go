// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/okb-go/internal/model"
)

const articleColumns = "id, title, slug, body, status, created_at, updated_at"

// scanArticle scans a single article row.
func scanArticle(row interface{ Scan(...any) error }) (model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Body, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetArticleByID returns a single article by id.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+` FROM articles WHERE id = ?
	`, id)
	return scanArticle(row)
}

// CreateArticleParams holds the fields for creating an article.
type CreateArticleParams struct {
	Title  string
	Slug   string
	Body   string
	Status string
}

// CreateArticle inserts a new article and returns it.
func (q *Queries) CreateArticle(ctx context.Context, p CreateArticleParams) (model.Article, error) {
	if p.Status == "" {
		p.Status = model.ArticleStatusPublished
	}

	now := time.Now()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO articles (title, slug, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Title, p.Slug, p.Body, p.Status, now, now)
	if err != nil {
		return model.Article{}, fmt.Errorf("creating article %q: %w", p.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Article{}, err
	}

	return model.Article{
		ID:        id,
		Title:     p.Title,
		Slug:      p.Slug,
		Body:      p.Body,
		Status:    p.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListArticleIDsByTermParams bounds a paged id query.
type ListArticleIDsByTermParams struct {
	TermID int64
	Limit  int64
	Offset int64
}

// ListArticleIDsByTerm returns a stable page of article ids associated with a
// term. Ordering by article id keeps offset cursors valid across calls.
func (q *Queries) ListArticleIDsByTerm(ctx context.Context, p ListArticleIDsByTermParams) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT article_id FROM article_terms
		WHERE term_id = ?
		ORDER BY article_id
		LIMIT ? OFFSET ?
	`, p.TermID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing article ids for term %d: %w", p.TermID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountArticlesByTerm returns the number of articles associated with a term.
func (q *Queries) CountArticlesByTerm(ctx context.Context, termID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM article_terms WHERE term_id = ?`, termID).Scan(&n)
	return n, err
}

// ListArticlesByTerm returns a page of full article rows for a term.
func (q *Queries) ListArticlesByTerm(ctx context.Context, termID, limit, offset int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.slug, a.body, a.status, a.created_at, a.updated_at
		FROM articles a
		JOIN article_terms at ON at.article_id = a.id
		WHERE at.term_id = ?
		ORDER BY a.id
		LIMIT ? OFFSET ?
	`, termID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing articles for term %d: %w", termID, err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// AssignArticleTerm associates an article with a term. The association is a
// set: assigning twice is a no-op, not an error.
func (q *Queries) AssignArticleTerm(ctx context.Context, articleID, termID int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO article_terms (article_id, term_id) VALUES (?, ?)
	`, articleID, termID)
	if err != nil {
		return fmt.Errorf("assigning article %d to term %d: %w", articleID, termID, err)
	}
	return nil
}

// RemoveArticleTerm removes an article/term association.
func (q *Queries) RemoveArticleTerm(ctx context.Context, articleID, termID int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM article_terms WHERE article_id = ? AND term_id = ?
	`, articleID, termID)
	return err
}

// ArticleHasTerm reports whether an article is associated with a term.
func (q *Queries) ArticleHasTerm(ctx context.Context, articleID, termID int64) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, `
		SELECT 1 FROM article_terms WHERE article_id = ? AND term_id = ?
	`, articleID, termID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
