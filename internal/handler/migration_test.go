// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/okb-go/internal/cache"
	"github.com/olegiv/okb-go/internal/i18n"
	"github.com/olegiv/okb-go/internal/middleware"
	"github.com/olegiv/okb-go/internal/migration"
	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
	"github.com/olegiv/okb-go/internal/testutil"
)

type batchResponse struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error"`
	Done     bool     `json:"done"`
	Progress int      `json:"progress"`
	Message  string   `json:"message"`
	NextStep int      `json:"next_step"`
	RunID    string   `json:"run_id"`
	DryRun   bool     `json:"dry_run"`
	Errors   []string `json:"errors"`
	Log      []string `json:"log"`
}

func newMigrationTestHandler(t *testing.T) (*MigrationHandler, *sql.DB, func()) {
	t.Helper()
	require.NoError(t, i18n.Init(testutil.TestLoggerSilent()))

	db, cleanup := testutil.TestDB(t)

	c := cache.NewSimpleMemoryCache(time.Hour)
	runs := migration.NewRunStore(c, time.Hour)

	h := NewMigrationHandler(db, runs, migration.DefaultPolicy(), testutil.TestLoggerSilent())
	return h, db, func() {
		_ = c.Close()
		cleanup()
	}
}

func adminRequest(method, target string, form url.Values, role string) *http.Request {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, target, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	user := model.User{ID: 1, Email: "admin@example.com", Role: role}
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

func postBatch(t *testing.T, h *MigrationHandler, form url.Values, role string) (batchResponse, int) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Batch(rec, adminRequest(http.MethodPost, "/admin/migrate/batch", form, role))

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp, rec.Code
}

func seedWizardKB(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	q := store.New(db)

	a, err := q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy: model.TaxonomySection, Name: "A", Slug: "a",
	})
	require.NoError(t, err)
	a1, err := q.CreateTerm(ctx, store.CreateTermParams{
		Taxonomy: model.TaxonomySection, Name: "A1", Slug: "a1",
		ParentID: sql.NullInt64{Int64: a.ID, Valid: true},
	})
	require.NoError(t, err)
	_, err = q.CreateTerm(ctx, store.CreateTermParams{
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
}

func TestBatchWizardFullFlow(t *testing.T) {
	h, db, cleanup := newMigrationTestHandler(t)
	defer cleanup()
	seedWizardKB(t, db)

	// The client's polling loop: start at step 0 and follow next_step.
	resp, code := postBatch(t, h, url.Values{"step": {"0"}}, model.RoleAdmin)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.Log, "scan should deliver its log lines")

	runID := resp.RunID
	lastProgress := resp.Progress

	for i := 0; i < 100 && !resp.Done; i++ {
		form := url.Values{
			"step":   {fmt.Sprintf("%d", resp.NextStep)},
			"run_id": {runID},
		}
		resp, code = postBatch(t, h, form, model.RoleAdmin)
		require.Equal(t, http.StatusOK, code)
		require.True(t, resp.Success)
		assert.GreaterOrEqual(t, resp.Progress, lastProgress)
		lastProgress = resp.Progress
	}

	require.True(t, resp.Done)
	assert.Equal(t, 100, resp.Progress)
	assert.Empty(t, resp.Errors)

	// The completed run is cleared; polling it again reports run not found.
	form := url.Values{"step": {"2"}, "run_id": {runID}}
	_, code = postBatch(t, h, form, model.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, code)

	// The completion marker now blocks a fresh start.
	resp, code = postBatch(t, h, url.Values{"step": {"0"}}, model.RoleAdmin)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)
}

func TestBatchForbiddenForEditor(t *testing.T) {
	h, db, cleanup := newMigrationTestHandler(t)
	defer cleanup()
	seedWizardKB(t, db)

	before := countSections(t, db)

	resp, code := postBatch(t, h, url.Values{"step": {"0"}}, model.RoleEditor)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	assert.Equal(t, before, countSections(t, db), "a rejected call must have no side effects")
}

func TestBatchUnknownRun(t *testing.T) {
	h, _, cleanup := newMigrationTestHandler(t)
	defer cleanup()

	form := url.Values{"step": {"2"}, "run_id": {"bogus"}}
	resp, code := postBatch(t, h, form, model.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
}

func TestBatchInvalidStep(t *testing.T) {
	h, _, cleanup := newMigrationTestHandler(t)
	defer cleanup()

	form := url.Values{"step": {"banana"}}
	_, code := postBatch(t, h, form, model.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBatchUnknownStepNumber(t *testing.T) {
	h, db, cleanup := newMigrationTestHandler(t)
	defer cleanup()
	seedWizardKB(t, db)

	// Start a run, then poll it with a step the machine does not know.
	resp, _ := postBatch(t, h, url.Values{"step": {"0"}}, model.RoleAdmin)
	require.True(t, resp.Success)

	form := url.Values{"step": {"99"}, "run_id": {resp.RunID}}
	resp, code := postBatch(t, h, form, model.RoleAdmin)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Done)
	assert.NotEmpty(t, resp.Errors)
}

func TestBatchDryRunFlag(t *testing.T) {
	h, db, cleanup := newMigrationTestHandler(t)
	defer cleanup()
	seedWizardKB(t, db)

	resp, code := postBatch(t, h, url.Values{"step": {"0"}, "dry_run": {"1"}}, model.RoleAdmin)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.DryRun)
}

func TestStatusEndpoint(t *testing.T) {
	h, db, cleanup := newMigrationTestHandler(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	h.Status(rec, adminRequest(http.MethodGet, "/admin/migrate/status", nil, model.RoleAdmin))

	var status struct {
		Success          bool   `json:"success"`
		Completed        bool   `json:"completed"`
		CompletedAt      string `json:"completed_at"`
		MultiProductMode bool   `json:"multi_product_mode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Success)
	assert.False(t, status.Completed)
	assert.False(t, status.MultiProductMode)

	// Record a completion marker and check gating flips.
	q := store.New(db)
	require.NoError(t, q.SetConfig(context.Background(), store.SetConfigParams{
		Key:   model.ConfigKeyMigrationCompletedAt,
		Value: time.Now().Format(time.RFC3339),
		Type:  model.ConfigTypeString,
	}))

	rec = httptest.NewRecorder()
	h.Status(rec, adminRequest(http.MethodGet, "/admin/migrate/status", nil, model.RoleAdmin))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Completed)
	assert.NotEmpty(t, status.CompletedAt)
}

func countSections(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	n, err := store.New(db).CountTermsByTaxonomy(context.Background(), model.TaxonomySection)
	require.NoError(t, err)
	return n
}
