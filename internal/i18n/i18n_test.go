// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import (
	"strings"
	"testing"
)

func initCatalog(t *testing.T) {
	t.Helper()
	if err := Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestTranslation(t *testing.T) {
	initCatalog(t)

	en := T("en", "migrate.error_forbidden")
	if !strings.Contains(en, "permission") {
		t.Errorf("unexpected en translation: %q", en)
	}

	ru := T("ru", "migrate.error_forbidden")
	if ru == en || ru == "migrate.error_forbidden" {
		t.Errorf("expected distinct ru translation, got %q", ru)
	}
}

func TestTranslationWithArgs(t *testing.T) {
	initCatalog(t)

	got := T("en", "migrate.error_unknown_step", 99)
	if !strings.Contains(got, "99") {
		t.Errorf("expected formatted step number, got %q", got)
	}
}

func TestTranslationFallback(t *testing.T) {
	initCatalog(t)

	// Unknown language falls back to default
	if got := T("de", "migrate.title"); got != T("en", "migrate.title") {
		t.Errorf("expected en fallback, got %q", got)
	}

	// Unknown key falls back to the key itself
	if got := T("en", "no.such.key"); got != "no.such.key" {
		t.Errorf("expected key echo, got %q", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	initCatalog(t)

	if got := MatchLanguage("ru-RU,ru;q=0.9,en;q=0.8"); got != "ru" {
		t.Errorf("MatchLanguage = %q, want ru", got)
	}
	if got := MatchLanguage("fr"); got != "en" {
		t.Errorf("MatchLanguage fr = %q, want en default", got)
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("en") || !IsSupported("RU") {
		t.Error("expected en and RU to be supported")
	}
	if IsSupported("de") {
		t.Error("expected de to be unsupported")
	}
}
