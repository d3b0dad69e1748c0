// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance tasks.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/okb-go/internal/migration"
	"github.com/olegiv/okb-go/internal/model"
	"github.com/olegiv/okb-go/internal/store"
)

// staleRunAge is how long a finished migration must be in the past
// before the nightly sweep drops any leftover scratch data.
const staleRunAge = 48 * time.Hour

// Scheduler handles scheduled maintenance tasks.
type Scheduler struct {
	db     *sql.DB
	runs   *migration.RunStore
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a new scheduler instance.
func New(db *sql.DB, runs *migration.RunStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:     db,
		runs:   runs,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the nightly maintenance job and begins the cron loop.
func (s *Scheduler) Start() error {
	// Run daily at 03:30
	_, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.purgeStaleMigrationData(); err != nil {
			s.logger.Error("failed to purge stale migration data", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// purgeStaleMigrationData drops migration scratch data once the
// migration finished long enough ago. Cache TTLs already expire
// abandoned runs; this sweep covers backends without eviction.
func (s *Scheduler) purgeStaleMigrationData() error {
	ctx := context.Background()
	queries := store.New(s.db)

	completedAt, err := queries.GetConfigValue(ctx, model.ConfigKeyMigrationCompletedAt)
	if err != nil {
		return err
	}
	if completedAt == "" {
		// A run may still be in flight; leave its state alone.
		return nil
	}

	done, err := time.Parse(time.RFC3339, completedAt)
	if err != nil {
		s.logger.Warn("unparseable migration completion marker", "value", completedAt)
		return nil
	}
	if time.Since(done) < staleRunAge {
		return nil
	}

	if err := s.runs.PurgeAll(ctx); err != nil {
		return err
	}

	s.logger.Info("purged stale migration scratch data", "completed_at", completedAt)
	return nil
}
