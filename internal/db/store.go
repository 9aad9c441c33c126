// Copyright (c) 2025 ToeiRei
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"

	"github.com/toeirei/keymaster-blacklist/internal/model"
)

// Store defines the persistence operations for blacklist entries.
// Implementations are safe for concurrent use.
type Store interface {
	// Entry methods
	GetEntry(ctx context.Context, id int) (*model.BlacklistEntry, error)
	SaveEntry(ctx context.Context, e *model.BlacklistEntry) error
	DeleteEntry(ctx context.Context, id int) error
	FindEntry(ctx context.Context, kind model.Kind, value string) (*model.BlacklistEntry, error)
	ListEntries(ctx context.Context, kind model.Kind) ([]model.BlacklistEntry, error)
	ImportEntries(ctx context.Context, entries []model.BlacklistEntry) (added, skipped int, err error)
	ReplaceEntries(ctx context.Context, entries []model.BlacklistEntry) error

	// Audit Log methods
	GetAllAuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error)
	LogAction(ctx context.Context, action string, details string) error

	RunMaintenance(ctx context.Context) error
	Close() error
}
