// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/okb-go/internal/model"
)

const userColumns = "id, email, name, password_hash, role, created_at, updated_at"

// scanUser scans a single user row.
func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByID returns a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

// CreateUser inserts a new user and returns it.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	if p.Role == "" {
		p.Role = model.RoleEditor
	}

	now := time.Now()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Email, p.Name, p.PasswordHash, p.Role, now, now)
	if err != nil {
		return model.User{}, fmt.Errorf("creating user %q: %w", p.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}

	return model.User{
		ID:           id,
		Email:        p.Email,
		Name:         p.Name,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
