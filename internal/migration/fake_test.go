// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"fmt"
	"sort"

	"github.com/olegiv/okb-go/internal/model"
)

// fakeStore is an in-memory term/article/option store for machine tests.
// It mirrors the relational semantics the SQL layer provides: unique
// slugs per taxonomy, cascading deletes, set-semantics associations.
type fakeStore struct {
	nextID int64
	terms  map[int64]model.Term
	meta   map[int64]map[string]string
	// termID -> sorted article ids
	articles map[int64][]int64
	options  map[string]string

	// failCreateSlugs makes CreateTerm fail for specific slugs.
	failCreateSlugs map[string]bool

	assignCalls int
	deleteCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:          1,
		terms:           make(map[int64]model.Term),
		meta:            make(map[int64]map[string]string),
		articles:        make(map[int64][]int64),
		options:         make(map[string]string),
		failCreateSlugs: make(map[string]bool),
	}
}

func (f *fakeStore) addTerm(taxonomy, name, slug string, parentID int64) int64 {
	id := f.nextID
	f.nextID++
	t := model.Term{ID: id, Taxonomy: taxonomy, Name: name, Slug: slug}
	if parentID != 0 {
		t.ParentID.Int64 = parentID
		t.ParentID.Valid = true
	}
	f.terms[id] = t
	return id
}

func (f *fakeStore) addArticles(termID int64, articleIDs ...int64) {
	f.articles[termID] = append(f.articles[termID], articleIDs...)
	sort.Slice(f.articles[termID], func(i, j int) bool {
		return f.articles[termID][i] < f.articles[termID][j]
	})
}

func (f *fakeStore) TopLevelTerms(_ context.Context, taxonomy string) ([]model.Term, error) {
	var out []model.Term
	for _, t := range f.terms {
		if t.Taxonomy == taxonomy && !t.ParentID.Valid {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) ChildTerms(_ context.Context, parentID int64) ([]model.Term, error) {
	var out []model.Term
	for _, t := range f.terms {
		if t.ParentID.Valid && t.ParentID.Int64 == parentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) TermByID(_ context.Context, id int64) (model.Term, error) {
	t, ok := f.terms[id]
	if !ok {
		return model.Term{}, ErrTermNotFound
	}
	return t, nil
}

func (f *fakeStore) TermBySlug(_ context.Context, taxonomy, slug string) (model.Term, error) {
	for _, t := range f.terms {
		if t.Taxonomy == taxonomy && t.Slug == slug {
			return t, nil
		}
	}
	return model.Term{}, ErrTermNotFound
}

func (f *fakeStore) CreateTerm(_ context.Context, taxonomy, name, slug, description string) (model.Term, error) {
	if f.failCreateSlugs[slug] {
		return model.Term{}, fmt.Errorf("storage error creating %q", slug)
	}
	for _, t := range f.terms {
		if t.Taxonomy == taxonomy && t.Slug == slug {
			return model.Term{}, fmt.Errorf("duplicate slug %q in taxonomy %q", slug, taxonomy)
		}
	}
	id := f.nextID
	f.nextID++
	t := model.Term{ID: id, Taxonomy: taxonomy, Name: name, Slug: slug, Description: description}
	f.terms[id] = t
	return t, nil
}

func (f *fakeStore) DeleteTerm(_ context.Context, id int64) error {
	f.deleteCalls++
	if _, ok := f.terms[id]; !ok {
		return fmt.Errorf("term %d not found", id)
	}
	delete(f.terms, id)
	delete(f.meta, id)
	delete(f.articles, id)
	// Children are detached, matching ON DELETE SET NULL.
	for cid, c := range f.terms {
		if c.ParentID.Valid && c.ParentID.Int64 == id {
			c.ParentID.Valid = false
			c.ParentID.Int64 = 0
			f.terms[cid] = c
		}
	}
	return nil
}

func (f *fakeStore) SetTermMeta(_ context.Context, termID int64, key, value string) error {
	if f.meta[termID] == nil {
		f.meta[termID] = make(map[string]string)
	}
	f.meta[termID][key] = value
	return nil
}

func (f *fakeStore) ArticleIDsByTerm(_ context.Context, termID int64, limit, offset int) ([]int64, error) {
	ids := f.articles[termID]
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]int64, end-offset)
	copy(out, ids[offset:end])
	return out, nil
}

func (f *fakeStore) CountArticlesByTerm(_ context.Context, termID int64) (int, error) {
	return len(f.articles[termID]), nil
}

func (f *fakeStore) AssignTerm(_ context.Context, articleID, termID int64) error {
	f.assignCalls++
	for _, id := range f.articles[termID] {
		if id == articleID {
			return nil
		}
	}
	f.addArticles(termID, articleID)
	return nil
}

func (f *fakeStore) Option(_ context.Context, key string) (string, error) {
	return f.options[key], nil
}

func (f *fakeStore) SetOption(_ context.Context, key, value string) error {
	f.options[key] = value
	return nil
}

// snapshot captures the persistent store state for before/after diffs.
func (f *fakeStore) snapshot() string {
	var termIDs []int64
	for id := range f.terms {
		termIDs = append(termIDs, id)
	}
	sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })

	out := ""
	for _, id := range termIDs {
		t := f.terms[id]
		out += fmt.Sprintf("term %d %s %s parent=%v\n", t.ID, t.Taxonomy, t.Slug, t.ParentID)
		if m := f.meta[id]; m != nil {
			var keys []string
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out += fmt.Sprintf("meta %d %s=%s\n", id, k, m[k])
			}
		}
		out += fmt.Sprintf("articles %d %v\n", id, f.articles[id])
	}

	var optKeys []string
	for k := range f.options {
		optKeys = append(optKeys, k)
	}
	sort.Strings(optKeys)
	for _, k := range optKeys {
		out += fmt.Sprintf("option %s=%s\n", k, f.options[k])
	}
	return out
}
