// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package blacklist holds the in-memory working form of blacklist entries
// and the matching logic used to reject known-weak public keys.
package blacklist // import "github.com/toeirei/keymaster-blacklist/internal/blacklist"

import (
	"crypto"
	"fmt"

	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/model"
)

// PublicKeyEntry is a PUBLICKEY blacklist entry together with an optional
// transient key. Only Record() is handed to the store; the key never leaves
// the process.
//
// A PublicKeyEntry is not safe for concurrent mutation.
type PublicKeyEntry struct {
	record model.BlacklistEntry
	key    crypto.PublicKey
}

// NewPublicKeyEntry returns an empty, unsaved entry.
func NewPublicKeyEntry() *PublicKeyEntry {
	return &PublicKeyEntry{record: model.BlacklistEntry{Type: model.KindPublicKey}}
}

// NewPublicKeyEntryWith returns an entry populated from external data, such
// as a bulk import where no key object is available.
func NewPublicKeyEntryWith(id int, fp, keyspec string) *PublicKeyEntry {
	return &PublicKeyEntry{record: model.BlacklistEntry{
		ID:    id,
		Type:  model.KindPublicKey,
		Value: fp,
		Data:  keyspec,
	}}
}

// ForKey builds an entry for key, computing its fingerprint and attaching
// the key.
func ForKey(key crypto.PublicKey, keyspec string) (*PublicKeyEntry, error) {
	e := NewPublicKeyEntry()
	if err := e.SetFingerprintFromKey(key); err != nil {
		return nil, err
	}
	e.SetKey(key)
	e.SetKeyspec(keyspec)
	return e, nil
}

// FromRecord wraps a persisted record. Records of any other kind are rejected.
func FromRecord(r model.BlacklistEntry) (*PublicKeyEntry, error) {
	if r.Type != model.KindPublicKey {
		return nil, fmt.Errorf("entry %d has type %q, want %q", r.ID, r.Type, model.KindPublicKey)
	}
	return &PublicKeyEntry{record: r}, nil
}

// ID returns the store assigned identifier, zero if unsaved.
func (e *PublicKeyEntry) ID() int { return e.record.ID }

// SetID is used by the store after insert.
func (e *PublicKeyEntry) SetID(id int) { e.record.ID = id }

// Type always returns model.KindPublicKey.
func (e *PublicKeyEntry) Type() model.Kind { return model.KindPublicKey }

// Keyspec returns the descriptive key spec, e.g. "RSA2048" or "secp256r1".
func (e *PublicKeyEntry) Keyspec() string { return e.record.Data }

// SetKeyspec sets the descriptive key spec.
func (e *PublicKeyEntry) SetKeyspec(keyspec string) { e.record.Data = keyspec }

// Fingerprint returns the stored fingerprint.
func (e *PublicKeyEntry) Fingerprint() string { return e.record.Value }

// SetFingerprint stores fp as-is.
func (e *PublicKeyEntry) SetFingerprint(fp string) { e.record.Value = fp }

// SetFingerprintFromKey stores the fingerprint of key. Errors from the
// fingerprint package are returned unchanged and leave the entry untouched.
// It does not attach key; see SetKey.
func (e *PublicKeyEntry) SetFingerprintFromKey(key crypto.PublicKey) error {
	fp, err := fingerprint.Compute(key)
	if err != nil {
		return err
	}
	e.record.Value = fp
	return nil
}

// Key returns the transient key, if any.
func (e *PublicKeyEntry) Key() crypto.PublicKey { return e.key }

// SetKey attaches a transient key. The stored fingerprint is not recomputed.
func (e *PublicKeyEntry) SetKey(key crypto.PublicKey) { e.key = key }

// Record returns the persisted state of the entry.
func (e *PublicKeyEntry) Record() model.BlacklistEntry {
	r := e.record
	r.Type = model.KindPublicKey
	return r
}
