// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const testSecret = "Uq3!xP9vLm2#Rt8zWk5$Jh7yBn4cDs6e"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OKB_SESSION_SECRET", testSecret)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "./data/okb.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
	if cfg.UseRedisCache() {
		t.Error("expected no redis cache by default")
	}
	if cfg.MigrateSectionsPerCall != 3 || cfg.MigrateArticlesPerCall != 50 {
		t.Errorf("migration ceilings = %d/%d, want 3/50",
			cfg.MigrateSectionsPerCall, cfg.MigrateArticlesPerCall)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("OKB_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing session secret")
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("OKB_SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for short session secret")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWeakSecret(t *testing.T) {
	t.Setenv("OKB_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for known weak secret")
	}
}

func TestLoadInvalidBatchCeilings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OKB_MIGRATE_SECTIONS_PER_CALL", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero section ceiling")
	}
}

func TestServerAddr(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OKB_SERVER_HOST", "0.0.0.0")
	t.Setenv("OKB_SERVER_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ServerAddr(); got != "0.0.0.0:9000" {
		t.Errorf("ServerAddr = %q", got)
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaa") {
		t.Error("single character class should fail")
	}
	if !hasMinimumEntropy("Abc123!x") {
		t.Error("four character classes should pass")
	}
}
