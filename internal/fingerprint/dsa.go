// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

import (
	"crypto/dsa" //nolint:staticcheck
	"encoding/asn1"
	"fmt"
	"math/big"
)

// oidPublicKeyDSA is id-dsa from RFC 3279.
var oidPublicKeyDSA = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}

type dssParms struct {
	P, Q, G *big.Int
}

type dsaAlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters dssParms
}

type dsaSubjectPublicKeyInfo struct {
	Algorithm dsaAlgorithmIdentifier
	PublicKey asn1.BitString
}

// marshalDSAPublicKey builds the SubjectPublicKeyInfo for a DSA key, which
// crypto/x509 refuses to marshal.
func marshalDSAPublicKey(k *dsa.PublicKey) ([]byte, error) {
	if k.P == nil || k.Q == nil || k.G == nil || k.Y == nil {
		return nil, fmt.Errorf("%w: incomplete dsa public key", ErrUnsupportedKeyType)
	}
	y, err := asn1.Marshal(k.Y)
	if err != nil {
		return nil, fmt.Errorf("marshal dsa public value: %w", err)
	}
	spki := dsaSubjectPublicKeyInfo{
		Algorithm: dsaAlgorithmIdentifier{
			Algorithm:  oidPublicKeyDSA,
			Parameters: dssParms{P: k.P, Q: k.Q, G: k.G},
		},
		PublicKey: asn1.BitString{Bytes: y, BitLength: 8 * len(y)},
	}
	der, err := asn1.Marshal(spki)
	if err != nil {
		return nil, fmt.Errorf("marshal dsa subject public key info: %w", err)
	}
	return der, nil
}
