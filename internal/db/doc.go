// Copyright (c) 2025 ToeiRei
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db contains the data-access layer for blacklist entries.
//
// A single Bun-backed store (`BunStore`) serves SQLite, PostgreSQL and MySQL.
// Schema changes live in embedded, per-engine SQL files under `migrations/`
// and are applied by `RunMigrations` when a store is opened.
//
// Persisted records are `model.BlacklistEntry` values. They never carry a
// live key; callers that work with keys use the wrappers in the blacklist
// package and hand `Record()` to the store.
//
// Testing notes
//   - Prefer `New("sqlite", "file:<name>?mode=memory&cache=shared")` in tests
//     that need real DB semantics and migrations; `WithTestStore` wraps this.
package db
