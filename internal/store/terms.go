// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/okb-go/internal/model"
)

const termColumns = "id, taxonomy, name, slug, description, parent_id, created_at, updated_at"

// scanTerm scans a single term row.
func scanTerm(row interface{ Scan(...any) error }) (model.Term, error) {
	var t model.Term
	err := row.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug, &t.Description,
		&t.ParentID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// collectTerms scans all term rows from a result set.
func collectTerms(rows *sql.Rows) ([]model.Term, error) {
	defer func() { _ = rows.Close() }()

	var terms []model.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// ListTopLevelTerms returns all parentless terms of a taxonomy, ordered by name.
func (q *Queries) ListTopLevelTerms(ctx context.Context, taxonomy string) ([]model.Term, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+termColumns+` FROM terms
		WHERE taxonomy = ? AND parent_id IS NULL
		ORDER BY name, id
	`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("listing top-level %s terms: %w", taxonomy, err)
	}
	return collectTerms(rows)
}

// ListChildTerms returns the direct children of a term, ordered by name.
func (q *Queries) ListChildTerms(ctx context.Context, parentID int64) ([]model.Term, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+termColumns+` FROM terms
		WHERE parent_id = ?
		ORDER BY name, id
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing children of term %d: %w", parentID, err)
	}
	return collectTerms(rows)
}

// GetTermByID returns a single term by id.
func (q *Queries) GetTermByID(ctx context.Context, id int64) (model.Term, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+termColumns+` FROM terms WHERE id = ?
	`, id)
	return scanTerm(row)
}

// GetTermBySlug returns a term by taxonomy and slug.
func (q *Queries) GetTermBySlug(ctx context.Context, taxonomy, slug string) (model.Term, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND slug = ?
	`, taxonomy, slug)
	return scanTerm(row)
}

// CreateTermParams holds the fields for creating a term.
type CreateTermParams struct {
	Taxonomy    string
	Name        string
	Slug        string
	Description string
	ParentID    sql.NullInt64
}

// CreateTerm inserts a new term and returns it.
func (q *Queries) CreateTerm(ctx context.Context, p CreateTermParams) (model.Term, error) {
	now := time.Now()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO terms (taxonomy, name, slug, description, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Taxonomy, p.Name, p.Slug, p.Description, p.ParentID, now, now)
	if err != nil {
		return model.Term{}, fmt.Errorf("creating %s term %q: %w", p.Taxonomy, p.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Term{}, err
	}

	return model.Term{
		ID:          id,
		Taxonomy:    p.Taxonomy,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		ParentID:    p.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateTermParent re-parents a term.
func (q *Queries) UpdateTermParent(ctx context.Context, id int64, parentID sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE terms SET parent_id = ?, updated_at = ? WHERE id = ?
	`, parentID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("re-parenting term %d: %w", id, err)
	}
	return nil
}

// DeleteTerm removes a term. Children are orphaned to top level (FK SET NULL)
// and meta/article associations are cascade deleted.
func (q *Queries) DeleteTerm(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM terms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting term %d: %w", id, err)
	}
	return nil
}

// CountTermsByTaxonomy returns the number of terms in a taxonomy.
func (q *Queries) CountTermsByTaxonomy(ctx context.Context, taxonomy string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terms WHERE taxonomy = ?`, taxonomy).Scan(&n)
	return n, err
}

// GetTermMeta returns a term meta value. sql.ErrNoRows when absent.
func (q *Queries) GetTermMeta(ctx context.Context, termID int64, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `
		SELECT meta_value FROM term_meta WHERE term_id = ? AND meta_key = ?
	`, termID, key).Scan(&value)
	return value, err
}

// SetTermMeta upserts a term meta value.
func (q *Queries) SetTermMeta(ctx context.Context, termID int64, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO term_meta (term_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT (term_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, termID, key, value)
	if err != nil {
		return fmt.Errorf("setting meta %q on term %d: %w", key, termID, err)
	}
	return nil
}

// DeleteTermMeta removes a term meta entry.
func (q *Queries) DeleteTermMeta(ctx context.Context, termID int64, key string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM term_meta WHERE term_id = ? AND meta_key = ?
	`, termID, key)
	return err
}
