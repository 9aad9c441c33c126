// Copyright (c) 2025 ToeiRei
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"

	"github.com/toeirei/keymaster-blacklist/internal/testutil"
)

// WithTestStore opens an in-memory sqlite store for the duration of the
// provided function and closes it afterwards.
func WithTestStore(t *testing.T, fn func(s *BunStore)) {
	t.Helper()

	s, err := NewStoreFromDSN("sqlite", testutil.MemoryDSN(t))
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	fn(s)
}
