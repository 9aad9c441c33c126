// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	canonical := strings.Repeat("ab", 32)
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"canonical", canonical, canonical, false},
		{"uppercase", strings.ToUpper(canonical), canonical, false},
		{"surrounding whitespace", "\t" + canonical + "\n", canonical, false},
		{"too short", canonical[:63], "", true},
		{"too long", canonical + "a", "", true},
		{"non hex", strings.Repeat("zz", 32), "", true},
		{"empty", "", "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Normalize(c.in)
			if c.wantErr {
				if !errors.Is(err, ErrInvalidFingerprint) {
					t.Fatalf("expected ErrInvalidFingerprint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if got != c.want {
				t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if !Valid(cubeModulusFingerprint) {
		t.Fatalf("expected canonical fingerprint to be valid")
	}
	if Valid(strings.ToUpper(cubeModulusFingerprint)) {
		t.Fatalf("uppercase fingerprint is not canonical")
	}
	if Valid("abc") {
		t.Fatalf("short string reported as valid")
	}
}
