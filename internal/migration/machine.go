// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/okb-go/internal/model"
)

// scanPageSize bounds article id pages fetched while computing the
// deduplicated total during scan.
const scanPageSize = 500

// Result is the outcome of one batch call. Per-call counters live here,
// never in State, so a retried call cannot inflate cumulative counts.
type Result struct {
	Done     bool
	Progress int
	NextStep int

	// MessageKey plus MessageArgs identify a translatable status message;
	// the transport layer renders it in the caller's language.
	MessageKey  string
	MessageArgs []any

	// Errors are user-facing recoverable failures from this call.
	Errors []string

	// Log lines appended by this call, in order.
	Log []string

	SectionsThisCall int
	ArticlesThisCall int
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *Result) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Errors = append(r.Errors, msg)
	r.Log = append(r.Log, msg)
}

// Machine executes migration steps against the term and content stores.
// Step is a pure transition over (State, step): it mutates the passed
// state and returns the call's result, with no transport concerns.
type Machine struct {
	terms    TermStore
	articles ArticleStore
	options  OptionStore
	policy   Policy
	logger   *slog.Logger
}

// NewMachine builds a migration state machine.
func NewMachine(terms TermStore, articles ArticleStore, options OptionStore, policy Policy, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		terms:    terms,
		articles: articles,
		options:  options,
		policy:   policy,
		logger:   logger,
	}
}

// Step dispatches one batch call. Step 0 always restarts the scan;
// steps 1-3 must match the run's current phase, otherwise the call is a
// no-op that points the client back at the right step. Any other step
// value is terminal: done with an error and zero side effects.
func (m *Machine) Step(ctx context.Context, st *State, step int) Result {
	st.normalize()
	defer func() { st.UpdatedAt = time.Now() }()

	switch step {
	case 0:
		return m.stepScan(ctx, st)
	case 1, 2, 3:
		if st.Phase != Phase(step) {
			var res Result
			res.NextStep = int(st.Phase)
			res.Progress = m.policy.Progress(st.ArticlesProcessed, st.TotalArticles)
			res.errorf("step %d out of order for phase %s, resuming at step %d", step, st.Phase, int(st.Phase))
			return res
		}
	default:
		var res Result
		res.Done = true
		res.NextStep = step
		res.Progress = 100
		res.MessageKey = "migrate.error_unknown_step"
		res.MessageArgs = []any{step}
		res.errorf("unknown migration step %d", step)
		return res
	}

	switch step {
	case 1:
		return m.stepCreateProducts(ctx, st)
	case 2:
		return m.stepMapContent(ctx, st)
	default:
		return m.stepCleanup(ctx, st)
	}
}

// stepScan freezes the top-level section list, captures per-section
// article counts, and computes the deduplicated article total. Running
// it again restarts the run from scratch.
func (m *Machine) stepScan(ctx context.Context, st *State) Result {
	var res Result

	// Cold start: drop everything except run identity.
	*st = *NewState(st.RunID, st.DryRun)

	tops, err := m.terms.TopLevelTerms(ctx, model.TaxonomySection)
	if err != nil {
		res.NextStep = 0
		res.Progress = m.policy.ProgressFloor
		res.errorf("scan failed: %v", err)
		m.logger.Error("migration scan failed", "run_id", st.RunID, "error", err)
		return res
	}

	if len(tops) == 0 {
		st.Phase = PhaseDone
		res.Done = true
		res.Progress = 100
		res.MessageKey = "migrate.no_sections"
		res.logf("scan: no top-level sections found, nothing to migrate")
		return res
	}

	seen := make(map[int64]bool)
	for _, top := range tops {
		st.TopSectionIDs = append(st.TopSectionIDs, top.ID)

		ids, err := Descendants(ctx, m.terms, top.ID)
		if err != nil {
			res.errorf("scan: cannot resolve descendants of section %q (id %d): %v", top.Name, top.ID, err)
			ids = []int64{top.ID}
		}
		st.TotalDescendants += len(ids) - 1

		sectionTotal := 0
		for _, secID := range ids {
			count, err := m.articles.CountArticlesByTerm(ctx, secID)
			if err != nil {
				res.errorf("scan: cannot count articles for section %d: %v", secID, err)
				count = 0
			}
			st.ArticleCounts[secID] = count
			sectionTotal += count

			// Page through the ids so articles shared between sections
			// count once toward the total.
			for offset := 0; offset < count; offset += scanPageSize {
				page, err := m.articles.ArticleIDsByTerm(ctx, secID, scanPageSize, offset)
				if err != nil {
					res.errorf("scan: cannot list articles for section %d: %v", secID, err)
					break
				}
				for _, id := range page {
					seen[id] = true
				}
				if len(page) < scanPageSize {
					break
				}
			}
		}

		res.logf("scan: section %q has %d descendant sections and %d articles", top.Name, len(ids)-1, sectionTotal)
	}

	st.TotalArticles = len(seen)
	st.Phase = PhaseCreateProducts

	res.NextStep = 1
	res.Progress = m.policy.ProgressFloor
	res.MessageKey = "migrate.scan_done"
	res.MessageArgs = []any{len(tops), st.TotalArticles}
	res.logf("scan: found %d top-level sections, %d distinct articles", len(tops), st.TotalArticles)

	m.logger.Info("migration scan complete",
		"run_id", st.RunID,
		"dry_run", st.DryRun,
		"top_sections", len(tops),
		"total_articles", st.TotalArticles,
	)
	return res
}

// stepCreateProducts creates or reuses one product per top-level
// section, matching by slug first so a retried call never produces
// duplicates. Failures skip the section and keep going.
func (m *Machine) stepCreateProducts(ctx context.Context, st *State) Result {
	var res Result

	for _, secID := range st.TopSectionIDs {
		if _, ok := st.SectionToProduct[secID]; ok {
			continue
		}

		sec, err := m.terms.TermByID(ctx, secID)
		if err != nil {
			res.errorf("products: cannot load section %d, skipping: %v", secID, err)
			continue
		}

		prod, err := m.terms.TermBySlug(ctx, model.TaxonomyProduct, sec.Slug)
		switch {
		case err == nil:
			res.logf("products: reusing existing product %q (id %d) for section %q", prod.Name, prod.ID, sec.Name)
		case errors.Is(err, ErrTermNotFound):
			prod, err = m.terms.CreateTerm(ctx, model.TaxonomyProduct, sec.Name, sec.Slug, sec.Description)
			if err != nil {
				res.errorf("products: cannot create product for section %q, skipping: %v", sec.Name, err)
				continue
			}
			if st.DryRun {
				st.SimulatedProductIDs = append(st.SimulatedProductIDs, prod.ID)
			}
			res.logf("products: created product %q (id %d) for section %q", prod.Name, prod.ID, sec.Name)
		default:
			res.errorf("products: lookup failed for slug %q, skipping: %v", sec.Slug, err)
			continue
		}

		st.SectionToProduct[secID] = prod.ID
	}

	st.Phase = PhaseMapContent

	res.NextStep = 2
	res.Progress = m.policy.ProgressFloor
	res.MessageKey = "migrate.products_done"
	res.MessageArgs = []any{len(st.SectionToProduct)}

	m.logger.Info("migration products ready",
		"run_id", st.RunID,
		"dry_run", st.DryRun,
		"products", len(st.SectionToProduct),
	)
	return res
}

// stepMapContent is the batching core. Each call resumes from the
// cursor and processes at most SectionsPerCall sections and
// ArticlesPerCall articles before handing control back.
func (m *Machine) stepMapContent(ctx context.Context, st *State) Result {
	var res Result

	for res.SectionsThisCall < m.policy.SectionsPerCall &&
		res.ArticlesThisCall < m.policy.ArticlesPerCall &&
		st.CurTopIndex < len(st.TopSectionIDs) {

		topID := st.TopSectionIDs[st.CurTopIndex]

		productID, ok := st.SectionToProduct[topID]
		if !ok {
			res.errorf("map: no product recorded for top section %d, skipping its subtree", topID)
			st.CurTopIndex++
			st.resetCursor()
			continue
		}

		if st.DescendantIDs == nil {
			ids, err := Descendants(ctx, m.terms, topID)
			if err != nil {
				res.errorf("map: cannot resolve descendants of section %d, skipping its subtree: %v", topID, err)
				st.CurTopIndex++
				st.resetCursor()
				continue
			}
			st.DescendantIDs = ids
			st.CurDescIndex = 0
			st.CurArticleOffset = 0
		}

		if st.CurDescIndex >= len(st.DescendantIDs) {
			// Subtree exhausted, move to the next top-level section.
			st.CurTopIndex++
			st.TopSectionsMapped++
			st.resetCursor()
			continue
		}

		secID := st.DescendantIDs[st.CurDescIndex]

		if secID != topID && !st.ProcessedSectionIDs[secID] {
			if !st.DryRun {
				if err := m.terms.SetTermMeta(ctx, secID, model.TermMetaProductID, fmt.Sprintf("%d", productID)); err != nil {
					res.errorf("map: cannot link section %d to product %d: %v", secID, productID, err)
				}
			}
			st.ProcessedSectionIDs[secID] = true
			st.SectionsMapped++
			res.logf("map: section %d linked to product %d", secID, productID)
		}

		remaining := st.ArticleCounts[secID] - st.CurArticleOffset
		if remaining <= 0 {
			// Empty sections are cheap and do not consume the section budget.
			st.CurDescIndex++
			st.CurArticleOffset = 0
			continue
		}

		fetch := remaining
		if budget := m.policy.ArticlesPerCall - res.ArticlesThisCall; fetch > budget {
			fetch = budget
		}

		page, err := m.articles.ArticleIDsByTerm(ctx, secID, fetch, st.CurArticleOffset)
		if err != nil {
			res.errorf("map: cannot list articles for section %d, skipping the rest of it: %v", secID, err)
			st.CurDescIndex++
			st.CurArticleOffset = 0
			res.SectionsThisCall++
			continue
		}

		for _, articleID := range page {
			if st.isAssigned(productID, articleID) {
				continue
			}
			if !st.DryRun {
				if err := m.articles.AssignTerm(ctx, articleID, productID); err != nil {
					res.errorf("map: cannot assign article %d to product %d: %v", articleID, productID, err)
					continue
				}
			}
			st.markAssigned(productID, articleID)
			st.ProcessedArticleIDs[articleID] = true
		}

		res.ArticlesThisCall += len(page)
		st.CurArticleOffset += len(page)

		if len(page) < fetch || st.CurArticleOffset >= st.ArticleCounts[secID] {
			st.CurDescIndex++
			st.CurArticleOffset = 0
			res.SectionsThisCall++
		}
	}

	// Cumulative count derives from the set, so double-application of a
	// call cannot inflate it.
	st.ArticlesProcessed = len(st.ProcessedArticleIDs)

	if st.TotalArticles > 0 {
		res.Progress = m.policy.Progress(st.ArticlesProcessed, st.TotalArticles)
	} else {
		res.Progress = m.policy.FallbackProgress(st.CurTopIndex, len(st.TopSectionIDs))
	}

	if st.CurTopIndex >= len(st.TopSectionIDs) {
		st.resetCursor()
		st.Phase = PhaseCleanup
		res.NextStep = 3
	} else {
		res.NextStep = 2
	}

	res.MessageKey = "migrate.mapping"
	res.MessageArgs = []any{st.ArticlesProcessed, st.TotalArticles}

	m.logger.Debug("migration mapping batch",
		"run_id", st.RunID,
		"sections_this_call", res.SectionsThisCall,
		"articles_this_call", res.ArticlesThisCall,
		"articles_processed", st.ArticlesProcessed,
		"next_step", res.NextStep,
	)
	return res
}

// stepCleanup deletes the obsolete top-level sections, rolls back
// products created during a dry run, and records the completion marker.
func (m *Machine) stepCleanup(ctx context.Context, st *State) Result {
	var res Result

	for _, secID := range st.TopSectionIDs {
		if st.DryRun {
			// Counted for reporting symmetry with a real run.
			st.SectionsDeleted++
			res.logf("cleanup: would delete top-level section %d (dry run)", secID)
			continue
		}
		if err := m.terms.DeleteTerm(ctx, secID); err != nil {
			res.errorf("cleanup: cannot delete section %d: %v", secID, err)
			continue
		}
		st.SectionsDeleted++
		res.logf("cleanup: deleted top-level section %d", secID)
	}

	if st.DryRun {
		for _, prodID := range st.SimulatedProductIDs {
			if err := m.terms.DeleteTerm(ctx, prodID); err != nil {
				res.errorf("cleanup: cannot roll back dry-run product %d: %v", prodID, err)
				continue
			}
			res.logf("cleanup: rolled back dry-run product %d", prodID)
		}
	} else {
		completedAt := time.Now().Format(time.RFC3339)
		if err := m.options.SetOption(ctx, model.ConfigKeyMigrationCompletedAt, completedAt); err != nil {
			res.errorf("cleanup: cannot record completion marker: %v", err)
		} else {
			res.logf("cleanup: migration completed at %s", completedAt)
		}
		if err := m.options.SetOption(ctx, model.ConfigKeyMultiProductMode, "1"); err != nil {
			res.errorf("cleanup: cannot enable multi-product mode: %v", err)
		} else {
			res.logf("cleanup: multi-product mode enabled")
		}
	}

	st.Phase = PhaseDone

	res.Done = true
	res.Progress = 100
	res.NextStep = 3
	if st.DryRun {
		res.MessageKey = "migrate.dry_run_done"
	} else {
		res.MessageKey = "migrate.cleanup_done"
		res.MessageArgs = []any{st.SectionsDeleted}
	}

	m.logger.Info("migration finished",
		"run_id", st.RunID,
		"dry_run", st.DryRun,
		"sections_deleted", st.SectionsDeleted,
		"articles_processed", st.ArticlesProcessed,
	)
	return res
}
