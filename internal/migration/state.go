// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"encoding/json"
	"time"
)

// Phase identifies where a migration run currently is. Phases advance
// strictly forward; the step number a client sends is validated against
// the phase before any work happens.
type Phase int

// Migration phases, in execution order.
const (
	PhaseScan Phase = iota
	PhaseCreateProducts
	PhaseMapContent
	PhaseCleanup
	PhaseDone
)

// String returns a human-readable phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseScan:
		return "scan"
	case PhaseCreateProducts:
		return "create-products"
	case PhaseMapContent:
		return "map-content"
	case PhaseCleanup:
		return "cleanup"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// State is the full working memory of one migration run. It lives
// server-side keyed by the run id; the client only ever sees the run id
// and the step number. All cumulative counters derive from the id sets
// rather than bare increments, so re-applying a call with an unchanged
// cursor cannot double count.
type State struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`
	Phase  Phase  `json:"phase"`

	// Frozen at scan time and never re-queried.
	TopSectionIDs []int64 `json:"top_section_ids"`

	// Per-section direct article counts, captured at scan time so the
	// mapping cursor's offsets stay valid even if content shifts.
	ArticleCounts map[int64]int `json:"article_counts"`

	// Section id to product id, built incrementally during product creation.
	SectionToProduct map[int64]int64 `json:"section_to_product_map"`

	// Product ids created (not reused) during a dry run, rolled back at cleanup.
	SimulatedProductIDs []int64 `json:"simulated_product_ids"`

	// Cumulative counters and the id sets that back them.
	TotalArticles       int            `json:"total_articles"`
	ArticlesProcessed   int            `json:"articles_processed"`
	SectionsMapped      int            `json:"sections_mapped"`
	TopSectionsMapped   int            `json:"top_sections_mapped"`
	ProcessedSectionIDs map[int64]bool `json:"processed_section_ids"`
	ProcessedArticleIDs map[int64]bool `json:"processed_article_ids"`

	// AssignedArticles records which articles already carry which product,
	// keyed product id then article id. It makes assignment a set-add.
	AssignedArticles map[int64]map[int64]bool `json:"assigned_articles"`

	// Resumable cursor for the mapping step.
	CurTopIndex      int     `json:"current_top_section_index"`
	DescendantIDs    []int64 `json:"descendant_ids"`
	CurDescIndex     int     `json:"current_desc_section_index"`
	CurArticleOffset int     `json:"current_article_offset"`

	TotalDescendants int `json:"total_descendant_count"`
	SectionsDeleted  int `json:"sections_deleted"`

	// LastLogIndex is the watermark of log lines already delivered to the
	// client; responses carry only the slice past it.
	LastLogIndex int `json:"last_log_index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns a fresh run state in the scan phase.
func NewState(runID string, dryRun bool) *State {
	now := time.Now()
	st := &State{
		RunID:     runID,
		DryRun:    dryRun,
		Phase:     PhaseScan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.normalize()
	return st
}

// normalize fills in nil collections so every field reads with a safe
// default even when the state was decoded from a partial document.
func (s *State) normalize() {
	if s.ArticleCounts == nil {
		s.ArticleCounts = make(map[int64]int)
	}
	if s.SectionToProduct == nil {
		s.SectionToProduct = make(map[int64]int64)
	}
	if s.ProcessedSectionIDs == nil {
		s.ProcessedSectionIDs = make(map[int64]bool)
	}
	if s.ProcessedArticleIDs == nil {
		s.ProcessedArticleIDs = make(map[int64]bool)
	}
	if s.AssignedArticles == nil {
		s.AssignedArticles = make(map[int64]map[int64]bool)
	}
}

// markAssigned records that an article now carries a product term.
func (s *State) markAssigned(productID, articleID int64) {
	set, ok := s.AssignedArticles[productID]
	if !ok {
		set = make(map[int64]bool)
		s.AssignedArticles[productID] = set
	}
	set[articleID] = true
}

// isAssigned reports whether an article already carries a product term
// according to this run's bookkeeping.
func (s *State) isAssigned(productID, articleID int64) bool {
	return s.AssignedArticles[productID][articleID]
}

// resetCursor clears the mapping cursor, usually when moving on to the
// next top-level section.
func (s *State) resetCursor() {
	s.DescendantIDs = nil
	s.CurDescIndex = 0
	s.CurArticleOffset = 0
}

// Marshal serializes the state for cache storage.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a cached state document. Missing fields decode
// to safe zero values; collections are re-initialized when absent.
func UnmarshalState(data []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	st.normalize()
	return &st, nil
}
