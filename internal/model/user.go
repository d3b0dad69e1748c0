// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// User roles. Roles are hierarchical: admin > editor.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// User is an admin-panel account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
