// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressClamps(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		processed int
		total     int
		want      int
	}{
		{"zero total falls to floor", 0, 0, 20},
		{"nothing processed", 0, 100, 20},
		{"halfway", 50, 100, 50},
		{"complete clamps at ceiling", 100, 100, 80},
		{"overshoot clamps at ceiling", 150, 100, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Progress(tt.processed, tt.total))
		})
	}
}

func TestFallbackProgress(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 20, p.FallbackProgress(0, 0))
	assert.Equal(t, 20, p.FallbackProgress(0, 4))
	assert.Equal(t, 50, p.FallbackProgress(2, 4))
	assert.Equal(t, 80, p.FallbackProgress(4, 4))
}
