// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the persisted records shared between the blacklist
// core, the database layer and the command line.
package model // import "github.com/toeirei/keymaster-blacklist/internal/model"

import (
	"fmt"
	"strings"
)

// Kind discriminates the blacklist entry variants. Every variant shares the
// BlacklistEntry shape; Value and Data are interpreted per kind.
type Kind string

const (
	// KindPublicKey entries carry a key fingerprint in Value and a keyspec
	// (e.g. "RSA2048", "secp256r1") in Data.
	KindPublicKey Kind = "PUBLICKEY"
)

// Kinds lists every known entry kind.
func Kinds() []Kind {
	return []Kind{KindPublicKey}
}

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts user input into a Kind. Matching ignores case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown blacklist entry type %q", s)
	}
	return k, nil
}

// BlacklistEntry is the persisted state of a blacklist entry. It never holds
// a reference to a live key; that lives in the in-memory wrappers.
type BlacklistEntry struct {
	// ID is assigned by the store; zero until the entry is first saved.
	ID    int    `json:"id"`
	Type  Kind   `json:"type"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// SameAs reports whether e and other describe the same blacklisted item.
// Only Type and Value take part; ID and descriptive data are ignored.
func (e BlacklistEntry) SameAs(other BlacklistEntry) bool {
	return e.Type == other.Type && strings.EqualFold(e.Value, other.Value)
}

// String returns a short human readable form.
func (e BlacklistEntry) String() string {
	if e.Data != "" {
		return fmt.Sprintf("%s %s (%s)", e.Type, e.Value, e.Data)
	}
	return fmt.Sprintf("%s %s", e.Type, e.Value)
}

// AuditLogEntry is one row of the audit trail.
type AuditLogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// BackupData is the container written by export and read by restore.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int              `json:"schema_version"`
	Entries       []BlacklistEntry `json:"entries"`
}
