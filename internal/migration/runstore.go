// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/okb-go/internal/cache"
)

// Cache key layout for run-scoped scratch data.
const (
	runKeyPrefix = "kb:migrate:"
	stateKeyFmt  = runKeyPrefix + "state:"
	logKeyFmt    = runKeyPrefix + "log:"
)

// ErrRunNotFound is returned when a run id has no cached state, either
// because it never existed or because it expired.
var ErrRunNotFound = errors.New("migration run not found")

// runLog is the append-only log document stored alongside the state.
type runLog struct {
	Lines []string `json:"lines"`
}

// RunStore persists migration run state and its append-only log in the
// short-lived cache, keyed by run id. The client only ever holds the
// run id; everything else stays server-side.
type RunStore struct {
	states *cache.TypedCache[State]
	logs   *cache.TypedCache[runLog]
	cache  cache.Cacher
	ttl    time.Duration
}

// NewRunStore builds a run store on top of a cache backend. The TTL is
// a safety net for abandoned runs; completed runs are cleared explicitly.
func NewRunStore(c cache.Cacher, ttl time.Duration) *RunStore {
	return &RunStore{
		states: cache.NewTypedCache[State](c, ttl),
		logs:   cache.NewTypedCache[runLog](c, ttl),
		cache:  c,
		ttl:    ttl,
	}
}

// NewRun creates and persists a fresh run in the scan phase.
func (r *RunStore) NewRun(ctx context.Context, dryRun bool) (*State, error) {
	st := NewState(uuid.NewString(), dryRun)
	if err := r.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load retrieves a run's state by id.
func (r *RunStore) Load(ctx context.Context, runID string) (*State, error) {
	st, ok := r.states.Get(ctx, stateKeyFmt+runID)
	if !ok {
		return nil, ErrRunNotFound
	}
	st.normalize()
	return st, nil
}

// Save persists a run's state, refreshing its TTL.
func (r *RunStore) Save(ctx context.Context, st *State) error {
	return r.states.Set(ctx, stateKeyFmt+st.RunID, st)
}

// AppendLog appends lines to a run's log and returns the new length.
func (r *RunStore) AppendLog(ctx context.Context, runID string, lines []string) (int, error) {
	key := logKeyFmt + runID
	log, ok := r.logs.Get(ctx, key)
	if !ok {
		log = &runLog{}
	}
	log.Lines = append(log.Lines, lines...)
	if err := r.logs.Set(ctx, key, log); err != nil {
		return 0, err
	}
	return len(log.Lines), nil
}

// LogSince returns the log lines past the given watermark plus the
// current total, so the caller can advance its watermark.
func (r *RunStore) LogSince(ctx context.Context, runID string, index int) ([]string, int, error) {
	log, ok := r.logs.Get(ctx, logKeyFmt+runID)
	if !ok {
		return nil, index, nil
	}
	if index < 0 {
		index = 0
	}
	if index >= len(log.Lines) {
		return nil, len(log.Lines), nil
	}
	return log.Lines[index:], len(log.Lines), nil
}

// Clear removes a run's state and log. Called on successful completion;
// the TTL handles abandoned runs.
func (r *RunStore) Clear(ctx context.Context, runID string) error {
	if err := r.states.Delete(ctx, stateKeyFmt+runID); err != nil {
		return err
	}
	return r.logs.Delete(ctx, logKeyFmt+runID)
}

// PurgeAll drops every migration-scoped cache entry regardless of run.
// Used by the maintenance scheduler and by a fresh scan's cold start.
func (r *RunStore) PurgeAll(ctx context.Context) error {
	return r.cache.DeleteByPrefix(ctx, runKeyPrefix)
}
