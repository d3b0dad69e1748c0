// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Config types
const (
	ConfigTypeString = "string"
	ConfigTypeInt    = "int"
	ConfigTypeBool   = "bool"
)

// Config keys
const (
	ConfigKeySiteName        = "site_name"
	ConfigKeySiteDescription = "site_description"
	ConfigKeyAdminEmail      = "admin_email"
	ConfigKeyArticlesPerPage = "articles_per_page"

	// ConfigKeyMigrationCompletedAt holds the RFC3339 timestamp of the
	// first successful (non dry-run) product migration. Its presence
	// permanently disables the wizard entry points.
	ConfigKeyMigrationCompletedAt = "kb_migration_completed_at"

	// ConfigKeyMultiProductMode is the feature flag the completed
	// migration turns on.
	ConfigKeyMultiProductMode = "kb_multi_product_mode"
)

// Config represents a site configuration item.
type Config struct {
	Key         string
	Value       string
	Type        string
	Description string
	UpdatedAt   time.Time
	UpdatedBy   sql.NullInt64
}
