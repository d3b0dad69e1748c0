// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"context"
	"fmt"
)

// Descendants returns a section id followed by the ids of all of its
// descendants, parent before children. Traversal is iterative with an
// explicit stack so arbitrarily deep hierarchies cannot exhaust the call
// stack, and a visited set guards against parent cycles the storage
// layer should never produce but a guard makes harmless.
func Descendants(ctx context.Context, terms TermStore, rootID int64) ([]int64, error) {
	result := make([]int64, 0, 8)
	visited := map[int64]bool{rootID: true}
	stack := []int64{rootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, id)

		children, err := terms.ChildTerms(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving children of term %d: %w", id, err)
		}

		// Push in reverse so children pop in stored order.
		for i := len(children) - 1; i >= 0; i-- {
			childID := children[i].ID
			if visited[childID] {
				continue
			}
			visited[childID] = true
			stack = append(stack, childID)
		}
	}

	return result, nil
}
