// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testPayload struct {
	Name  string  `json:"name"`
	IDs   []int64 `json:"ids"`
	Count int     `json:"count"`
}

func TestTypedCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	tc := NewTypedCache[testPayload](c, time.Minute)
	ctx := context.Background()

	in := &testPayload{Name: "sections", IDs: []int64{1, 2, 3}, Count: 3}
	if err := tc.Set(ctx, "payload", in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	out, ok := tc.Get(ctx, "payload")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if out.Name != in.Name || out.Count != in.Count || len(out.IDs) != 3 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestTypedCacheMiss(t *testing.T) {
	c := newTestCache(t)
	tc := NewTypedCache[testPayload](c, time.Minute)

	if _, ok := tc.Get(context.Background(), "missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestTypedCacheGetOrSet(t *testing.T) {
	c := newTestCache(t)
	tc := NewTypedCache[testPayload](c, time.Minute)
	ctx := context.Background()

	calls := 0
	compute := func() (*testPayload, error) {
		calls++
		return &testPayload{Name: "computed"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := tc.GetOrSet(ctx, "computed", compute)
		if err != nil {
			t.Fatalf("GetOrSet: %v", err)
		}
		if v.Name != "computed" {
			t.Errorf("unexpected value: %+v", v)
		}
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestTypedCacheGetOrSetError(t *testing.T) {
	c := newTestCache(t)
	tc := NewTypedCache[testPayload](c, time.Minute)

	wantErr := errors.New("boom")
	_, err := tc.GetOrSet(context.Background(), "err", func() (*testPayload, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected compute error to propagate, got %v", err)
	}
}
