// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/okb-go/internal/model"
)

func requestWithUser(role string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/admin/migrate", nil)
	user := model.User{ID: 7, Email: "admin@example.com", Role: role}
	ctx := context.WithValue(r.Context(), ContextKeyUser, user)
	return r.WithContext(ctx)
}

func TestGetUser(t *testing.T) {
	r := requestWithUser(model.RoleAdmin)
	user := GetUser(r)
	if user == nil {
		t.Fatal("expected user in context")
	}
	if user.ID != 7 {
		t.Errorf("user.ID = %d, want 7", user.ID)
	}

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(empty) != nil {
		t.Error("expected nil user for empty context")
	}
	if GetUserID(empty) != 0 {
		t.Error("expected zero user id for empty context")
	}
}

func TestRequireAdmin(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireAdmin()(next)

	tests := []struct {
		name       string
		role       string
		wantStatus int
		wantCalled bool
	}{
		{"admin allowed", model.RoleAdmin, http.StatusOK, true},
		{"editor forbidden", model.RoleEditor, http.StatusForbidden, false},
		{"unknown role forbidden", "viewer", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, requestWithUser(tt.role))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("next called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestRequireRoleHierarchy(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireEditor()(next)

	// Admin passes an editor gate
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, requestWithUser(model.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Errorf("admin through editor gate: status = %d, want 200", rec.Code)
	}

	// Editor passes too
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, requestWithUser(model.RoleEditor))
	if rec.Code != http.StatusOK {
		t.Errorf("editor through editor gate: status = %d, want 200", rec.Code)
	}
}

func TestRequireRoleRedirectsAnonymous(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireAdmin()(next)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("redirect location = %q, want /login", loc)
	}
}
