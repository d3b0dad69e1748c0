// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/okb-go/internal/auth"
	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/util"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// Seed creates initial data in the database: the default admin user and
// baseline site configuration. Safe to call on every startup.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	// Check if admin user already exists
	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		Name:         DefaultAdminName,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	defaults := []SetConfigParams{
		{Key: model.ConfigKeySiteName, Value: "oKB", Description: "Site name"},
		{Key: model.ConfigKeyArticlesPerPage, Value: "20", Type: model.ConfigTypeInt, Description: "Articles per listing page"},
	}
	for _, p := range defaults {
		if err := queries.SetConfig(ctx, p); err != nil {
			return fmt.Errorf("seeding config: %w", err)
		}
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}

// SeedDemo populates a small demo knowledge base: two top-level sections,
// one child section and a handful of articles. Skipped when any section
// terms already exist.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	n, err := queries.CountTermsByTaxonomy(ctx, model.TaxonomySection)
	if err != nil {
		return fmt.Errorf("counting sections: %w", err)
	}
	if n > 0 {
		return nil
	}

	getting, err := queries.CreateTerm(ctx, CreateTermParams{
		Taxonomy: model.TaxonomySection,
		Name:     "Getting Started",
		Slug:     util.Slugify("Getting Started"),
	})
	if err != nil {
		return err
	}

	install, err := queries.CreateTerm(ctx, CreateTermParams{
		Taxonomy: model.TaxonomySection,
		Name:     "Installation",
		Slug:     util.Slugify("Installation"),
		ParentID: sql.NullInt64{Int64: getting.ID, Valid: true},
	})
	if err != nil {
		return err
	}

	faq, err := queries.CreateTerm(ctx, CreateTermParams{
		Taxonomy: model.TaxonomySection,
		Name:     "FAQ",
		Slug:     util.Slugify("FAQ"),
	})
	if err != nil {
		return err
	}

	demo := []struct {
		title   string
		body    string
		section int64
	}{
		{"Welcome to oKB", "# Welcome\n\nThis is your knowledge base.", getting.ID},
		{"Quick start", "Install, configure, publish.", getting.ID},
		{"Installing on Linux", "Use the release tarball.", install.ID},
		{"Installing on macOS", "Use homebrew.", install.ID},
		{"Is oKB free?", "Yes, GPL-3.0.", faq.ID},
	}

	for _, d := range demo {
		article, err := queries.CreateArticle(ctx, CreateArticleParams{
			Title:  d.title,
			Slug:   util.Slugify(d.title),
			Body:   d.body,
			Status: model.ArticleStatusPublished,
		})
		if err != nil {
			return err
		}
		if err := queries.AssignArticleTerm(ctx, article.ID, d.section); err != nil {
			return err
		}
	}

	slog.Info("seeded demo knowledge base", "sections", 3, "articles", len(demo))
	return nil
}
