// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/okb-go/internal/auth"
	"github.com/olegiv/okb-go/internal/middleware"
	"github.com/olegiv/okb-go/internal/store"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	queries *store.Queries
	sm      *scs.SessionManager
	logger  *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		queries: store.New(db),
		sm:      sm,
		logger:  logger,
	}
}

// Login handles POST /login with email and password form fields.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		// Same response as a wrong password so accounts cannot be probed.
		h.logger.Warn("login failed", "email", email, "remote_addr", r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		h.logger.Warn("login failed", "email", email, "remote_addr", r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// New session token on privilege change.
	if err := h.sm.RenewToken(r.Context()); err != nil {
		h.logger.Error("session renew failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot create session")
		return
	}
	h.sm.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	h.logger.Info("login", "user_id", user.ID, "email", user.Email)

	writeJSONSuccess(w, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sm.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sm.Destroy(r.Context()); err != nil {
		h.logger.Error("session destroy failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "cannot end session")
		return
	}

	if userID != 0 {
		h.logger.Info("logout", "user_id", userID)
	}

	writeJSONSuccess(w, nil)
}
