// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/okb-go/internal/model"
)

// GetConfig returns a config entry by key. sql.ErrNoRows when absent.
func (q *Queries) GetConfig(ctx context.Context, key string) (model.Config, error) {
	var c model.Config
	err := q.db.QueryRowContext(ctx, `
		SELECT key, value, type, description, updated_at, updated_by
		FROM config WHERE key = ?
	`, key).Scan(&c.Key, &c.Value, &c.Type, &c.Description, &c.UpdatedAt, &c.UpdatedBy)
	return c, err
}

// GetConfigValue returns a config value, or "" when the key is absent.
func (q *Queries) GetConfigValue(ctx context.Context, key string) (string, error) {
	c, err := q.GetConfig(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return c.Value, nil
}

// SetConfigParams holds the fields for upserting a config entry.
type SetConfigParams struct {
	Key         string
	Value       string
	Type        string
	Description string
	UpdatedBy   sql.NullInt64
}

// SetConfig upserts a config entry.
func (q *Queries) SetConfig(ctx context.Context, p SetConfigParams) error {
	if p.Type == "" {
		p.Type = model.ConfigTypeString
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO config (key, value, type, description, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			type = excluded.type,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`, p.Key, p.Value, p.Type, p.Description, time.Now(), p.UpdatedBy)
	if err != nil {
		return fmt.Errorf("setting config %q: %w", p.Key, err)
	}
	return nil
}

// DeleteConfig removes a config entry.
func (q *Queries) DeleteConfig(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key)
	return err
}

// ListConfig returns all config entries.
func (q *Queries) ListConfig(ctx context.Context) ([]model.Config, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT key, value, type, description, updated_at, updated_by
		FROM config ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var configs []model.Config
	for rows.Next() {
		var c model.Config
		if err := rows.Scan(&c.Key, &c.Value, &c.Type, &c.Description, &c.UpdatedAt, &c.UpdatedBy); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
