// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/okb-go/internal/i18n"
	"github.com/olegiv/okb-go/internal/middleware"
	"github.com/olegiv/okb-go/internal/migration"
	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
)

// MigrationHandler exposes the product migration wizard over HTTP: one
// batch endpoint the client polls with a step number and run id, plus a
// status endpoint the admin UI uses for gating.
type MigrationHandler struct {
	machine *migration.Machine
	runs    *migration.RunStore
	queries *store.Queries
	logger  *slog.Logger
}

// NewMigrationHandler wires the migration state machine to the database
// and the run store.
func NewMigrationHandler(db *sql.DB, runs *migration.RunStore, policy migration.Policy, logger *slog.Logger) *MigrationHandler {
	stores := migration.NewSQLStores(db)
	return &MigrationHandler{
		machine: migration.NewMachine(stores, stores, stores, policy, logger),
		runs:    runs,
		queries: store.New(db),
		logger:  logger,
	}
}

// Batch handles POST /admin/migrate/batch. Request form fields: step
// (default 0), dry_run (0/1), run_id (required for steps past 0). The
// client is a dumb polling loop: it echoes back the run id and the
// next_step value from the previous response until done is true.
func (h *MigrationHandler) Batch(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)

	// Routing already enforces the admin role; the check here keeps the
	// endpoint failing closed if it is ever mounted without the guard.
	user := middleware.GetUser(r)
	if user == nil || user.Role != model.RoleAdmin {
		writeJSONError(w, http.StatusForbidden, i18n.T(lang, "migrate.error_forbidden"))
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	step := 0
	if v := r.PostFormValue("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid step value")
			return
		}
		step = n
	}
	dryRun := r.PostFormValue("dry_run") == "1" || r.PostFormValue("dry_run") == "true"

	ctx := r.Context()

	var st *migration.State
	if step == 0 {
		completedAt, err := h.queries.GetConfigValue(ctx, model.ConfigKeyMigrationCompletedAt)
		if err != nil {
			h.logger.Error("migration completion check failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "cannot check migration status")
			return
		}
		if completedAt != "" {
			writeJSONError(w, http.StatusConflict, i18n.T(lang, "migrate.error_completed"))
			return
		}

		// Cold start: drop scratch data left behind by abandoned runs.
		if err := h.runs.PurgeAll(ctx); err != nil {
			h.logger.Warn("migration scratch purge failed", "error", err)
		}

		st, err = h.runs.NewRun(ctx, dryRun)
		if err != nil {
			h.logger.Error("migration run creation failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "cannot start migration run")
			return
		}
	} else {
		runID := r.PostFormValue("run_id")
		if runID == "" {
			writeJSONError(w, http.StatusBadRequest, i18n.T(lang, "migrate.error_run_not_found"))
			return
		}

		var err error
		st, err = h.runs.Load(ctx, runID)
		if err != nil {
			if errors.Is(err, migration.ErrRunNotFound) {
				writeJSONError(w, http.StatusNotFound, i18n.T(lang, "migrate.error_run_not_found"))
				return
			}
			h.logger.Error("migration run load failed", "run_id", runID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "cannot load migration run")
			return
		}
	}

	res := h.machine.Step(ctx, st, step)

	if len(res.Log) > 0 {
		if _, err := h.runs.AppendLog(ctx, st.RunID, res.Log); err != nil {
			h.logger.Warn("migration log append failed", "run_id", st.RunID, "error", err)
		}
	}

	newLines, total, err := h.runs.LogSince(ctx, st.RunID, st.LastLogIndex)
	if err != nil {
		h.logger.Warn("migration log read failed", "run_id", st.RunID, "error", err)
	}
	st.LastLogIndex = total

	if st.Phase == migration.PhaseDone {
		if err := h.runs.Clear(ctx, st.RunID); err != nil {
			h.logger.Warn("migration run cleanup failed", "run_id", st.RunID, "error", err)
		}
	} else if err := h.runs.Save(ctx, st); err != nil {
		h.logger.Error("migration run save failed", "run_id", st.RunID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot persist migration run")
		return
	}

	message := ""
	if res.MessageKey != "" {
		message = i18n.T(lang, res.MessageKey, res.MessageArgs...)
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if newLines == nil {
		newLines = []string{}
	}

	writeJSONSuccess(w, map[string]any{
		"done":      res.Done,
		"progress":  res.Progress,
		"message":   message,
		"next_step": res.NextStep,
		"run_id":    st.RunID,
		"dry_run":   st.DryRun,
		"errors":    res.Errors,
		"log":       newLines,
	})
}

// Status handles GET /admin/migrate/status. The admin UI hides the
// wizard entry points once the completion marker exists and offers the
// wizard while multi-product mode is still unset.
func (h *MigrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	completedAt, err := h.queries.GetConfigValue(ctx, model.ConfigKeyMigrationCompletedAt)
	if err != nil {
		h.logger.Error("migration status read failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot read migration status")
		return
	}

	multiProduct, err := h.queries.GetConfigValue(ctx, model.ConfigKeyMultiProductMode)
	if err != nil {
		h.logger.Error("migration status read failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot read migration status")
		return
	}

	data := map[string]any{
		"completed":          completedAt != "",
		"multi_product_mode": multiProduct == "1" || multiProduct == "true",
	}
	if completedAt != "" {
		if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
			data["completed_at"] = t.UTC().Format(time.RFC3339)
		} else {
			data["completed_at"] = completedAt
		}
	}

	writeJSONSuccess(w, data)
}
