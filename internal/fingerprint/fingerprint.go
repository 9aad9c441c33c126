// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fingerprint derives the canonical blacklist fingerprint of a public key.
//
// For RSA keys the fingerprint is the SHA-256 digest of the modulus only, so
// every key produced by a weak random number generator matches regardless of
// the public exponent chosen. All other key families are fingerprinted over
// their PKIX (SubjectPublicKeyInfo) encoding. Fingerprints are rendered as
// 64 lowercase hexadecimal characters.
package fingerprint // import "github.com/toeirei/keymaster-blacklist/internal/fingerprint"

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA keys still show up in published blacklists.
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	_ "crypto/sha256" // registers crypto.SHA256
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/toeirei/keymaster-blacklist/internal/logging"
	"golang.org/x/crypto/ssh"
)

// DigestAlgorithm names the digest used for every fingerprint.
const DigestAlgorithm = "SHA-256"

var (
	// ErrUnsupportedKeyType is returned when a key has no defined encoding to
	// fingerprint.
	ErrUnsupportedKeyType = errors.New("unsupported public key type")

	// ErrConfiguration is returned when the digest primitive is not available
	// in this binary. It is fatal and should be caught by CheckDigest at startup.
	ErrConfiguration = errors.New("fingerprint digest unavailable")
)

// digestHash is swapped by tests to simulate a broken build.
var digestHash = crypto.SHA256

// CheckDigest verifies that the fingerprint digest can be instantiated.
// Callers run it once during process initialization and refuse to start
// when it fails.
func CheckDigest() error {
	if !digestHash.Available() {
		return fmt.Errorf("%w: %s is not linked into this binary", ErrConfiguration, DigestAlgorithm)
	}
	return nil
}

// Compute returns the blacklist fingerprint for key.
//
// A nil key (or a typed nil pointer) has nothing to fingerprint: Compute
// returns "" and a nil error. ssh.PublicKey values and SSH certificates are
// unwrapped to their underlying crypto key first.
func Compute(key crypto.PublicKey) (string, error) {
	key, err := unwrap(key)
	if err != nil {
		return "", err
	}
	if isNil(key) {
		return "", nil
	}

	var input []byte
	switch k := key.(type) {
	case *rsa.PublicKey:
		if k.N == nil {
			return "", fmt.Errorf("%w: rsa public key has no modulus", ErrUnsupportedKeyType)
		}
		input = twosComplementBytes(k.N)
	default:
		input, err = encodePublicKey(key)
		if err != nil {
			return "", err
		}
	}

	fp, err := digest(input)
	if err != nil {
		return "", err
	}
	logging.Debugf("fingerprint: %T -> %s", key, fp)
	return fp, nil
}

// Matches reports whether key fingerprints to fp. The comparison ignores
// case. A nil key never matches.
func Matches(key crypto.PublicKey, fp string) (bool, error) {
	got, err := Compute(key)
	if err != nil {
		return false, err
	}
	if got == "" {
		return false, nil
	}
	want, err := Normalize(fp)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

func digest(input []byte) (string, error) {
	if err := CheckDigest(); err != nil {
		return "", err
	}
	h := digestHash.New()
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// encodePublicKey returns the standard SubjectPublicKeyInfo encoding of key.
func encodePublicKey(key crypto.PublicKey) ([]byte, error) {
	switch k := key.(type) {
	case *dsa.PublicKey:
		return marshalDSAPublicKey(k)
	case *ecdsa.PublicKey:
		if k == nil || k.Curve == nil || k.X == nil || k.Y == nil {
			return nil, fmt.Errorf("%w: incomplete ecdsa key", ErrUnsupportedKeyType)
		}
		der, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedKeyType, key, err)
		}
		return der, nil
	case ed25519.PublicKey, *ecdh.PublicKey:
		der, err := x509.MarshalPKIXPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedKeyType, key, err)
		}
		return der, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
	}
}

// unwrap converts SSH wire keys into the crypto key they carry.
func unwrap(key crypto.PublicKey) (crypto.PublicKey, error) {
	switch k := key.(type) {
	case *ssh.Certificate:
		if k == nil || k.Key == nil {
			return nil, nil
		}
		return unwrap(k.Key)
	case ssh.CryptoPublicKey:
		if isNil(k) {
			return nil, nil
		}
		return k.CryptoPublicKey(), nil
	case ssh.PublicKey:
		if isNil(k) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: ssh key type %s", ErrUnsupportedKeyType, k.Type())
	}
	return key, nil
}

func isNil(key crypto.PublicKey) bool {
	if key == nil {
		return true
	}
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// twosComplementBytes encodes n as a minimal big-endian two's-complement
// byte slice. Positive values whose top bit is set get a leading 0x00 and
// zero encodes as a single 0x00 byte. Stored fingerprints depend on this
// exact layout.
func twosComplementBytes(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			return append([]byte{0x00}, b...)
		}
		return b
	}
	// -n-1 has the same bytes as n with every bit inverted.
	m := new(big.Int).Neg(n)
	m.Sub(m, big.NewInt(1))
	b := m.Bytes()
	for i := range b {
		b[i] = ^b[i]
	}
	if len(b) == 0 || b[0]&0x80 == 0 {
		return append([]byte{0xff}, b...)
	}
	return b
}
