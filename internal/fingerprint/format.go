// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

import (
	"errors"
	"fmt"
	"strings"
)

// HexLength is the length of a rendered fingerprint.
const HexLength = 64

// ErrInvalidFingerprint is returned for strings that are not 64 hex characters.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Normalize trims and lowercases fp and checks that it is a well-formed
// fingerprint. Imported and user supplied fingerprints go through here
// before they are stored or compared.
func Normalize(fp string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(fp))
	if len(s) != HexLength {
		return "", fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidFingerprint, HexLength, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidFingerprint, c, i)
		}
	}
	return s, nil
}

// Valid reports whether fp is already in canonical form.
func Valid(fp string) bool {
	n, err := Normalize(fp)
	return err == nil && n == fp
}
