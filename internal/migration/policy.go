// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package migration implements the one-time product migration: a
// multi-step, resumable, idempotent batch job that converts top-level
// sections into products, maps descendant sections and their articles
// onto those products, and removes the obsolete top-level sections.
package migration

import "time"

// Policy bounds the work one batch call may perform and shapes the
// reported progress percentage. The constants are tunable, not
// invariants; defaults match what a single web request can safely do.
type Policy struct {
	// SectionsPerCall caps how many sections one mapping call touches.
	SectionsPerCall int

	// ArticlesPerCall caps how many articles one mapping call touches.
	ArticlesPerCall int

	// ProgressFloor is the percentage reported while the early steps run.
	ProgressFloor int

	// ProgressCeiling caps the percentage until cleanup finishes.
	ProgressCeiling int

	// ProgressSpan is the percentage range the mapping step moves through.
	ProgressSpan int

	// RunTTL is how long an abandoned run's state and log survive in the
	// cache before expiring. Restarting a run clears them explicitly, so
	// the TTL is a safety net only.
	RunTTL time.Duration
}

// DefaultPolicy returns the standard batch policy.
func DefaultPolicy() Policy {
	return Policy{
		SectionsPerCall: 3,
		ArticlesPerCall: 50,
		ProgressFloor:   20,
		ProgressCeiling: 80,
		ProgressSpan:    60,
		RunTTL:          24 * time.Hour,
	}
}

// Progress converts processed/total article counts into a clamped
// percentage: floor + processed/total*span, never below the floor and
// never above the ceiling.
func (p Policy) Progress(processed, total int) int {
	if total <= 0 {
		return p.ProgressFloor
	}
	pct := p.ProgressFloor + int(float64(processed)/float64(total)*float64(p.ProgressSpan))
	if pct < p.ProgressFloor {
		pct = p.ProgressFloor
	}
	if pct > p.ProgressCeiling {
		pct = p.ProgressCeiling
	}
	return pct
}

// FallbackProgress estimates progress from the top-section cursor when
// the knowledge base has no articles at all.
func (p Policy) FallbackProgress(topIndex, topCount int) int {
	if topCount <= 0 {
		return p.ProgressFloor
	}
	pct := p.ProgressFloor + int(float64(topIndex)/float64(topCount)*float64(p.ProgressSpan))
	if pct < p.ProgressFloor {
		pct = p.ProgressFloor
	}
	if pct > p.ProgressCeiling {
		pct = p.ProgressCeiling
	}
	return pct
}
