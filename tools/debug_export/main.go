// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// debug_export seeds an in-memory store with freshly generated keys of each
// supported family, checks them back and dumps what was stored. It is a
// quick way to see the whole pipeline from key to stored fingerprint.
package main

import (
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"os"

	"github.com/toeirei/keymaster-blacklist/internal/blacklist"
	"github.com/toeirei/keymaster-blacklist/internal/db"
	"github.com/toeirei/keymaster-blacklist/internal/sshkey"
)

func main() {
	if err := run(context.Background(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "debug_export: %v\n", err)
		os.Exit(1)
	}
}

func sampleKeys() ([]crypto.PublicKey, error) {
	rk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	ek, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	xk, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return []crypto.PublicKey{&rk.PublicKey, &ek.PublicKey, edPub, xk.PublicKey()}, nil
}

func run(ctx context.Context, w io.Writer) error {
	st, err := db.New("sqlite", "file:debug_export?mode=memory&cache=shared")
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	keys, err := sampleKeys()
	if err != nil {
		return err
	}
	checker := blacklist.NewChecker(st)
	for _, k := range keys {
		e, err := blacklist.ForKey(k, sshkey.Keyspec(k))
		if err != nil {
			return err
		}
		rec := e.Record()
		if err := st.SaveEntry(ctx, &rec); err != nil {
			return err
		}
		hit, err := checker.Check(ctx, k)
		if err != nil {
			return err
		}
		if hit == nil || hit.ID != rec.ID {
			return fmt.Errorf("stored %s but check did not find it", rec.String())
		}
	}

	entries, err := st.ListEntries(ctx, "")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "entries: %d\n", len(entries))
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "entry: %d %s\n", e.ID, e.String())
	}

	logs, err := st.GetAllAuditLogEntries(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "audit entries: %d\n", len(logs))
	return nil
}
