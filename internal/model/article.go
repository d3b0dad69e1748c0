// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Article statuses.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// Article is a knowledge-base content item. An article may belong to any
// number of section terms and, after migration, any number of product terms.
type Article struct {
	ID        int64
	Title     string
	Slug      string
	Body      string // Markdown source
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublished reports whether the article is publicly visible.
func (a Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}
