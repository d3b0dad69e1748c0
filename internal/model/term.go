// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the core domain types shared by the store,
// handlers and the migration wizard.
package model

import (
	"database/sql"
	"time"
)

// Taxonomies known to the knowledge base.
const (
	// TaxonomySection is the pre-existing hierarchical taxonomy articles
	// are organized into.
	TaxonomySection = "section"

	// TaxonomyProduct is the hierarchical taxonomy introduced by the
	// product migration wizard.
	TaxonomyProduct = "product"

	// TaxonomyTag is the flat labeling taxonomy.
	TaxonomyTag = "tag"
)

// Term meta keys.
const (
	// TermMetaProductID links a section term to the product term it was
	// mapped into. It is the only persistent link the migration creates.
	TermMetaProductID = "product_id"
)

// Term is a taxonomy term. Terms within a hierarchical taxonomy form a
// forest via ParentID; the store enforces that a parent belongs to the
// same taxonomy.
type Term struct {
	ID          int64
	Taxonomy    string
	Name        string
	Slug        string
	Description string
	ParentID    sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTopLevel reports whether the term has no parent.
func (t Term) IsTopLevel() bool {
	return !t.ParentID.Valid
}
