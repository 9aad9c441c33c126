// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA keys still turn up in old key files.
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Keyspec describes a key the way blacklist entries record it, e.g.
// "RSA2048", "secp256r1" or "Ed25519". It returns "" for key types it
// does not know.
func Keyspec(key crypto.PublicKey) string {
	if pub, ok := key.(ssh.PublicKey); ok {
		key = fromSSH(pub)
	}
	switch k := key.(type) {
	case *rsa.PublicKey:
		if k == nil || k.N == nil {
			return ""
		}
		return fmt.Sprintf("RSA%d", k.N.BitLen())
	case *ecdsa.PublicKey:
		if k == nil || k.Curve == nil {
			return ""
		}
		return curveName(k.Curve)
	case ed25519.PublicKey:
		return "Ed25519"
	case *ecdh.PublicKey:
		if k == nil {
			return ""
		}
		switch k.Curve() {
		case ecdh.X25519():
			return "X25519"
		case ecdh.P256():
			return "secp256r1"
		case ecdh.P384():
			return "secp384r1"
		case ecdh.P521():
			return "secp521r1"
		}
	case *dsa.PublicKey:
		if k == nil || k.P == nil {
			return ""
		}
		return fmt.Sprintf("DSA%d", k.P.BitLen())
	}
	return ""
}

func curveName(c elliptic.Curve) string {
	switch c.Params().Name {
	case "P-224":
		return "secp224r1"
	case "P-256":
		return "secp256r1"
	case "P-384":
		return "secp384r1"
	case "P-521":
		return "secp521r1"
	}
	return c.Params().Name
}
