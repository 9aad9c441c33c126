// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package blacklist

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
	"testing"

	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/model"
)

type customKey struct{}

func cubeKey(e int) *rsa.PublicKey {
	n := big.NewInt(65537)
	n.Mul(n, big.NewInt(65537))
	n.Mul(n, big.NewInt(65537))
	return &rsa.PublicKey{N: n, E: e}
}

func TestNewPublicKeyEntry_Defaults(t *testing.T) {
	e := NewPublicKeyEntry()
	if e.Type() != model.KindPublicKey {
		t.Fatalf("unexpected type %q", e.Type())
	}
	if e.ID() != 0 || e.Fingerprint() != "" || e.Keyspec() != "" || e.Key() != nil {
		t.Fatalf("new entry should be empty: %+v", e.Record())
	}
}

func TestSetFingerprintFromKey_RoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	e := NewPublicKeyEntry()
	if err := e.SetFingerprintFromKey(&priv.PublicKey); err != nil {
		t.Fatalf("SetFingerprintFromKey: %v", err)
	}
	want, err := fingerprint.Compute(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if e.Fingerprint() != want {
		t.Fatalf("round trip mismatch: %s != %s", e.Fingerprint(), want)
	}
	if e.Key() != nil {
		t.Fatalf("SetFingerprintFromKey must not attach the key")
	}
}

func TestSetFingerprintFromKey_UnsupportedLeavesEntry(t *testing.T) {
	e := NewPublicKeyEntryWith(3, "previous", "RSA2048")
	err := e.SetFingerprintFromKey(customKey{})
	if !errors.Is(err, fingerprint.ErrUnsupportedKeyType) {
		t.Fatalf("expected ErrUnsupportedKeyType, got %v", err)
	}
	if e.Fingerprint() != "previous" {
		t.Fatalf("fingerprint changed after failure: %q", e.Fingerprint())
	}

	fresh := NewPublicKeyEntry()
	if err := fresh.SetFingerprintFromKey(customKey{}); err == nil {
		t.Fatalf("expected error")
	}
	if fresh.Fingerprint() != "" {
		t.Fatalf("no fingerprint should be stored, got %q", fresh.Fingerprint())
	}
}

func TestSetFingerprintFromKey_NilKeyClearsFingerprint(t *testing.T) {
	e := NewPublicKeyEntryWith(0, "stale", "")
	if err := e.SetFingerprintFromKey(nil); err != nil {
		t.Fatalf("nil key must not be an error: %v", err)
	}
	if e.Fingerprint() != "" {
		t.Fatalf("expected absent fingerprint, got %q", e.Fingerprint())
	}
}

func TestSetKey_DoesNotRecompute(t *testing.T) {
	e := NewPublicKeyEntryWith(0, "manual", "")
	e.SetKey(cubeKey(3))
	if e.Fingerprint() != "manual" {
		t.Fatalf("SetKey must not touch the fingerprint")
	}
	if e.Key() == nil {
		t.Fatalf("key not attached")
	}
}

func TestRecord_ExcludesKey(t *testing.T) {
	e, err := ForKey(cubeKey(65537), "RSA49")
	if err != nil {
		t.Fatalf("ForKey: %v", err)
	}
	e.SetID(12)
	r := e.Record()
	want := model.BlacklistEntry{
		ID:    12,
		Type:  model.KindPublicKey,
		Value: "b6416c1f6c890f9e35c4692b7cf39ab8307f083fc7af1d9b9e5f717da3b2a9b9",
		Data:  "RSA49",
	}
	if r != want {
		t.Fatalf("unexpected record: %+v", r)
	}
	if e.Key() == nil {
		t.Fatalf("ForKey should attach the key")
	}
}

func TestForKey_PropagatesErrors(t *testing.T) {
	if _, err := ForKey(customKey{}, "x"); !errors.Is(err, fingerprint.ErrUnsupportedKeyType) {
		t.Fatalf("expected ErrUnsupportedKeyType, got %v", err)
	}
}

func TestFromRecord(t *testing.T) {
	e, err := FromRecord(model.BlacklistEntry{ID: 4, Type: model.KindPublicKey, Value: "aa", Data: "Ed25519"})
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if e.ID() != 4 || e.Fingerprint() != "aa" || e.Keyspec() != "Ed25519" {
		t.Fatalf("unexpected entry: %+v", e.Record())
	}
	if _, err := FromRecord(model.BlacklistEntry{Type: "OTHER"}); err == nil {
		t.Fatalf("expected error for foreign kind")
	}
}
