// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package blacklist

import (
	"context"
	"crypto"
	"fmt"
	"strings"

	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/logging"
	"github.com/toeirei/keymaster-blacklist/internal/model"
)

// Finder looks up a stored entry by kind and value. It returns nil, nil when
// nothing matches. *db.BunStore satisfies it.
type Finder interface {
	FindEntry(ctx context.Context, kind model.Kind, value string) (*model.BlacklistEntry, error)
}

// Matches reports whether candidate fingerprints to the value stored in
// entry. Only PUBLICKEY entries can match a key.
func Matches(candidate crypto.PublicKey, entry model.BlacklistEntry) (bool, error) {
	if entry.Type != model.KindPublicKey {
		return false, nil
	}
	fp, err := fingerprint.Compute(candidate)
	if err != nil {
		return false, err
	}
	if fp == "" {
		return false, nil
	}
	return strings.EqualFold(fp, strings.TrimSpace(entry.Value)), nil
}

// Checker answers whether keys are blacklisted.
type Checker struct {
	finder Finder
}

// NewChecker returns a Checker backed by f.
func NewChecker(f Finder) *Checker {
	return &Checker{finder: f}
}

// Check returns the entry blacklisting key, or nil if key is not listed.
// A nil key is never listed.
func (c *Checker) Check(ctx context.Context, key crypto.PublicKey) (*model.BlacklistEntry, error) {
	fp, err := fingerprint.Compute(key)
	if err != nil {
		return nil, fmt.Errorf("fingerprint candidate key: %w", err)
	}
	if fp == "" {
		return nil, nil
	}
	entry, err := c.finder.FindEntry(ctx, model.KindPublicKey, fp)
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint %s: %w", fp, err)
	}
	if entry != nil {
		logging.Debugf("blacklist: key %s matches entry %d", fp, entry.ID)
	}
	return entry, nil
}

// CheckEntry checks a working entry. The attached key is used when present,
// otherwise the stored fingerprint is looked up directly.
func (c *Checker) CheckEntry(ctx context.Context, e *PublicKeyEntry) (*model.BlacklistEntry, error) {
	if e.Key() != nil {
		return c.Check(ctx, e.Key())
	}
	if e.Fingerprint() == "" {
		return nil, nil
	}
	fp, err := fingerprint.Normalize(e.Fingerprint())
	if err != nil {
		return nil, err
	}
	return c.finder.FindEntry(ctx, model.KindPublicKey, fp)
}
