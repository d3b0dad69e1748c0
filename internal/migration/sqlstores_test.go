// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
	"github.com/olegiv/okb-go/internal/testutil"
)

// seedKB builds the A/A1/B fixture in a real database and returns the
// section ids.
func seedKB(t *testing.T, q *store.Queries) (aID, a1ID, bID int64) {
	t.Helper()
	ctx := context.Background()

	a, err := q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy: model.TaxonomySection, Name: "A", Slug: "a",
	})
	require.NoError(t, err)
	a1, err := q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy: model.TaxonomySection, Name: "A1", Slug: "a1",
		ParentID: sql.NullInt64{Int64: a.ID, Valid: true},
	})
	require.NoError(t, err)
	b, err := q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy: model.TaxonomySection, Name: "B", Slug: "b",
	})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		article, err := q.CreateArticle(ctx, store.CreateArticleParams{
			Title: fmt.Sprintf("Article %d", i),
			Slug:  fmt.Sprintf("article-%d", i),
			Body:  "body",
		})
		require.NoError(t, err)

		target := a.ID
		if i > 2 {
			target = a1.ID
		}
		require.NoError(t, q.AssignArticleTerm(ctx, article.ID, target))
	}

	return a.ID, a1.ID, b.ID
}

func TestFullRunAgainstSQLite(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	q := store.New(db)
	aID, a1ID, bID := seedKB(t, q)

	stores := NewSQLStores(db)
	m := NewMachine(stores, stores, stores, DefaultPolicy(), testutil.TestLoggerSilent())

	st := NewState("run-sql", false)
	results := driveRun(t, m, st)

	final := results[len(results)-1]
	assert.True(t, final.Done)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 5, st.TotalArticles)
	assert.Equal(t, 5, st.ArticlesProcessed)

	ctx := context.Background()

	// Products exist with the sections' slugs.
	productA, err := q.GetTermBySlug(ctx, model.TaxonomyProduct, "a")
	require.NoError(t, err)
	productB, err := q.GetTermBySlug(ctx, model.TaxonomyProduct, "b")
	require.NoError(t, err)

	// All five articles now carry product A.
	count, err := q.CountArticlesByTerm(ctx, productA.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
	count, err = q.CountArticlesByTerm(ctx, productB.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// A1 is linked to product A via meta and survived cleanup.
	meta, err := q.GetTermMeta(ctx, a1ID, model.TermMetaProductID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", productA.ID), meta)

	_, err = q.GetTermByID(ctx, aID)
	assert.Error(t, err, "top-level section A should be deleted")
	_, err = q.GetTermByID(ctx, bID)
	assert.Error(t, err, "top-level section B should be deleted")
	_, err = q.GetTermByID(ctx, a1ID)
	assert.NoError(t, err)

	// Completion marker recorded and multi-product mode switched on.
	marker, err := q.GetConfigValue(ctx, model.ConfigKeyMigrationCompletedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, marker)
	flag, err := q.GetConfigValue(ctx, model.ConfigKeyMultiProductMode)
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
}

func TestDryRunAgainstSQLite(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	q := store.New(db)
	aID, a1ID, bID := seedKB(t, q)

	stores := NewSQLStores(db)
	m := NewMachine(stores, stores, stores, DefaultPolicy(), testutil.TestLoggerSilent())

	st := NewState("run-sql-dry", true)
	results := driveRun(t, m, st)
	assert.True(t, results[len(results)-1].Done)

	ctx := context.Background()

	// Sections intact, no products left behind, no completion marker.
	for _, id := range []int64{aID, a1ID, bID} {
		_, err := q.GetTermByID(ctx, id)
		assert.NoError(t, err)
	}
	n, err := q.CountTermsByTaxonomy(ctx, model.TaxonomyProduct)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	marker, err := q.GetConfigValue(ctx, model.ConfigKeyMigrationCompletedAt)
	require.NoError(t, err)
	assert.Empty(t, marker)
	flag, err := q.GetConfigValue(ctx, model.ConfigKeyMultiProductMode)
	require.NoError(t, err)
	assert.Empty(t, flag, "dry run must not enable multi-product mode")
}
