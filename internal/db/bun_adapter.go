// Copyright (c) 2025 ToeiRei
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/model"
	"github.com/uptrace/bun"
)

// BlacklistEntryModel maps the blacklist_entries table for Bun queries.
type BlacklistEntryModel struct {
	bun.BaseModel `bun:"table:blacklist_entries"`
	ID            int       `bun:"id,pk,autoincrement"`
	Type          string    `bun:"type"`
	Value         string    `bun:"value"`
	Data          string    `bun:"data"`
	CreatedAt     time.Time `bun:"created_at"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

func entryModelToModel(m BlacklistEntryModel) model.BlacklistEntry {
	return model.BlacklistEntry{ID: m.ID, Type: model.Kind(m.Type), Value: m.Value, Data: m.Data}
}

// normalizeValue puts values into the form they are stored and looked up in.
// Fingerprints are hex, compared case-insensitively.
func normalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// storedValue validates e and returns its value in stored form. Public key
// entries must carry a well-formed fingerprint.
func storedValue(e model.BlacklistEntry) (string, error) {
	if !e.Type.Valid() {
		return "", fmt.Errorf("unknown entry type %q", e.Type)
	}
	v := normalizeValue(e.Value)
	if v == "" {
		return "", fmt.Errorf("%s entry without a value", e.Type)
	}
	if e.Type == model.KindPublicKey {
		return fingerprint.Normalize(v)
	}
	return v, nil
}

// BunStore is the bun-backed Store implementation used for all supported
// database engines.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

// BunDB returns the underlying *bun.DB for advanced callers.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// Close releases the underlying connection pool.
func (s *BunStore) Close() error { return s.bun.Close() }

// GetEntry loads an entry by id. It returns ErrNotFound when no such entry exists.
func (s *BunStore) GetEntry(ctx context.Context, id int) (*model.BlacklistEntry, error) {
	return getEntryBun(ctx, s.bun, id)
}

// SaveEntry inserts e when it has no id yet and updates it otherwise. On
// insert the assigned id is written back into e.
func (s *BunStore) SaveEntry(ctx context.Context, e *model.BlacklistEntry) error {
	v, err := storedValue(*e)
	if err != nil {
		return fmt.Errorf("cannot save entry: %w", err)
	}
	e.Value = v
	if e.ID == 0 {
		if err := insertEntryBun(ctx, s.bun, e); err != nil {
			return err
		}
		_ = s.LogAction(ctx, "ADD_BLACKLIST_ENTRY", fmt.Sprintf("id: %d, %s", e.ID, e.String()))
		return nil
	}
	if err := updateEntryBun(ctx, s.bun, e); err != nil {
		return err
	}
	_ = s.LogAction(ctx, "UPDATE_BLACKLIST_ENTRY", fmt.Sprintf("id: %d, %s", e.ID, e.String()))
	return nil
}

// DeleteEntry removes an entry by id. It returns ErrNotFound when no such entry exists.
func (s *BunStore) DeleteEntry(ctx context.Context, id int) error {
	details := fmt.Sprintf("id: %d", id)
	if e, err := getEntryBun(ctx, s.bun, id); err == nil {
		details = fmt.Sprintf("id: %d, %s", id, e.String())
	}
	res, err := s.bun.NewDelete().Model((*BlacklistEntryModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	_ = s.LogAction(ctx, "DELETE_BLACKLIST_ENTRY", details)
	return nil
}

// FindEntry returns the entry of the given kind with the given value, or
// nil when there is none.
func (s *BunStore) FindEntry(ctx context.Context, kind model.Kind, value string) (*model.BlacklistEntry, error) {
	return findEntryBun(ctx, s.bun, kind, value)
}

// ListEntries returns all entries of kind ordered by id. An empty kind lists
// every entry.
func (s *BunStore) ListEntries(ctx context.Context, kind model.Kind) ([]model.BlacklistEntry, error) {
	var ms []BlacklistEntryModel
	q := s.bun.NewSelect().Model(&ms).OrderExpr("id ASC")
	if kind != "" {
		q = q.Where("type = ?", string(kind))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.BlacklistEntry, 0, len(ms))
	for _, m := range ms {
		out = append(out, entryModelToModel(m))
	}
	return out, nil
}

// ImportEntries adds entries in a single transaction. Entries that already
// exist (same type and value) or repeat within the batch are skipped. Any
// ids present on the input are ignored.
func (s *BunStore) ImportEntries(ctx context.Context, entries []model.BlacklistEntry) (added, skipped int, err error) {
	err = WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		added, skipped = 0, 0
		for _, in := range entries {
			e := in
			e.ID = 0
			v, err := storedValue(e)
			if err != nil {
				return fmt.Errorf("invalid entry in import batch: %w", err)
			}
			e.Value = v
			existing, err := findEntryBun(ctx, tx, e.Type, e.Value)
			if err != nil {
				return err
			}
			if existing != nil {
				skipped++
				continue
			}
			if err := insertEntryBun(ctx, tx, &e); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	_ = s.LogAction(ctx, "IMPORT_BLACKLIST", fmt.Sprintf("added: %d, skipped: %d", added, skipped))
	return added, skipped, nil
}

// ReplaceEntries wipes all entries and inserts the given ones, preserving
// their ids. It is used by a full restore.
func (s *BunStore) ReplaceEntries(ctx context.Context, entries []model.BlacklistEntry) error {
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		// Bun requires a WHERE clause for Delete queries.
		if _, err := ExecRaw(ctx, tx, "DELETE FROM blacklist_entries"); err != nil {
			return fmt.Errorf("failed to clear blacklist entries: %w", err)
		}
		now := time.Now().UTC()
		for _, e := range entries {
			v, err := storedValue(e)
			if err != nil {
				return fmt.Errorf("invalid entry in restore batch: %w", err)
			}
			m := &BlacklistEntryModel{ID: e.ID, Type: string(e.Type), Value: v, Data: e.Data, CreatedAt: now}
			q := tx.NewInsert().Model(m)
			if e.ID == 0 {
				q = q.ExcludeColumn("id")
			}
			if _, err := q.Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		if s.dbType == "postgres" {
			// Explicit ids do not advance the SERIAL sequence.
			if _, err := ExecRaw(ctx, tx, "SELECT setval(pg_get_serial_sequence('blacklist_entries', 'id'), COALESCE((SELECT MAX(id) FROM blacklist_entries), 0) + 1, false)"); err != nil {
				return fmt.Errorf("failed to reset id sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = s.LogAction(ctx, "RESTORE_BLACKLIST", fmt.Sprintf("entries: %d", len(entries)))
	return nil
}

// GetAllAuditLogEntries returns the audit trail, most recent first.
func (s *BunStore) GetAllAuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error) {
	var am []AuditLogModel
	if err := s.bun.NewSelect().Model(&am).OrderExpr("timestamp DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, model.AuditLogEntry{
			ID:        a.ID,
			Timestamp: a.Timestamp.Format(time.RFC3339),
			Username:  a.Username,
			Action:    a.Action,
			Details:   a.Details,
		})
	}
	return out, nil
}

// LogAction records an audit trail event attributed to the current OS user.
func (s *BunStore) LogAction(ctx context.Context, action string, details string) error {
	m := &AuditLogModel{
		Timestamp: time.Now().UTC(),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}
	_, err := s.bun.NewInsert().Model(m).ExcludeColumn("id").Exec(ctx)
	return MapDBError(err)
}

func currentUsername() string {
	curUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	// Windows reports DOMAIN\user.
	if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return curUser.Username
}

func getEntryBun(ctx context.Context, q bun.IDB, id int) (*model.BlacklistEntry, error) {
	var m BlacklistEntryModel
	err := q.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blacklist entry %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	e := entryModelToModel(m)
	return &e, nil
}

func findEntryBun(ctx context.Context, q bun.IDB, kind model.Kind, value string) (*model.BlacklistEntry, error) {
	var m BlacklistEntryModel
	err := q.NewSelect().Model(&m).
		Where("type = ?", string(kind)).
		Where("value = ?", normalizeValue(value)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e := entryModelToModel(m)
	return &e, nil
}

func insertEntryBun(ctx context.Context, q bun.IDB, e *model.BlacklistEntry) error {
	m := &BlacklistEntryModel{
		Type:      string(e.Type),
		Value:     e.Value,
		Data:      e.Data,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := q.NewInsert().Model(m).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return MapDBError(err)
	}
	if m.ID == 0 {
		// Engines without RETURNING: read the id back through the unique key.
		found, err := findEntryBun(ctx, q, e.Type, e.Value)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("inserted entry %s not found", e.String())
		}
		m.ID = found.ID
	}
	e.ID = m.ID
	return nil
}

func updateEntryBun(ctx context.Context, q bun.IDB, e *model.BlacklistEntry) error {
	m := &BlacklistEntryModel{ID: e.ID, Type: string(e.Type), Value: e.Value, Data: e.Data}
	res, err := q.NewUpdate().Model(m).Column("type", "value", "data").WherePK().Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero affected rows for no-op updates.
		if _, err := getEntryBun(ctx, q, e.ID); err != nil {
			return err
		}
	}
	return nil
}
